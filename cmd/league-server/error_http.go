package main

import (
	"fmt"
	"net"
	"net/http"
	"runtime"
	"strings"

	"github.com/pkg/browser"
	"github.com/sirupsen/logrus"
)

type HTTPErrorHandler struct {
	Cause string
	Error error
}

const httpErrorMessage = `!!! An Error Occurred !!!
-------------------------

Failed to initialise league-standings.

Your configuration file is probably incorrect. Please check that config.yml
exists next to the league-server binary and that api.base_url is set.

      Error Details
-------------------------

The error occurred attempting to: %s
The error more specifically is: %s

-------------------------

An example configuration is in config.example.yml.

`

func (h *HTTPErrorHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, httpErrorMessage, h.Cause, h.Error)
}

func (h *HTTPErrorHandler) String() string {
	return fmt.Sprintf(httpErrorMessage, h.Cause, h.Error)
}

// ServeHTTPWithError shows a startup failure on addr so that users running the binary
// from a file manager can see what went wrong.
func ServeHTTPWithError(addr string, openBrowser bool, cause string, err error) {
	h := &HTTPErrorHandler{Cause: cause, Error: err}

	fmt.Println(h.String())

	listener, err := net.Listen("tcp", addr)

	if err != nil {
		return
	}

	if openBrowser || runtime.GOOS == "windows" {
		_ = browser.OpenURL("http://" + strings.Replace(addr, "0.0.0.0", "127.0.0.1", 1))
	}

	if err := http.Serve(listener, h); err != nil {
		logrus.Fatal(err)
	}
}
