//go:build !linux

package chat

import (
	"errors"
	"net"
)

var errUnsupported = errors.New("chat: this platform is not supported")

func listenTCP(address string) (int, *net.TCPAddr, error) { return -1, nil, errUnsupported }
func acceptConn(fd int) (int, string, error) { return -1, "", errUnsupported }
func readConn(fd int, p []byte) (int, error) { return 0, errUnsupported }
func writeConn(fd int, p []byte) (int, error) { return 0, errUnsupported }
func closeConn(fd int) error { return errUnsupported }
