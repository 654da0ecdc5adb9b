//go:build !unix

package server

import "os"

func signalName(sig os.Signal) string {
	return sig.String()
}
