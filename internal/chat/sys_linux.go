//go:build linux

package chat

import (
	"fmt"
	"net"
	"strconv"

	"golang.org/x/sys/unix"
)

const listenBacklog = 128

// listenTCP opens a non-blocking IPv4 listening socket bound to address and
// returns it along with the address it was actually bound to.
func listenTCP(address string) (int, *net.TCPAddr, error) {
	addr, err := net.ResolveTCPAddr("tcp4", address)
	if err != nil {
		return -1, nil, fmt.Errorf("error resolving address %s: %w", address, err)
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, nil, fmt.Errorf("socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, nil, fmt.Errorf("setsockopt SO_REUSEADDR: %w", err)
	}

	sa := &unix.SockaddrInet4{Port: addr.Port}
	if ip := addr.IP.To4(); ip != nil {
		copy(sa.Addr[:], ip)
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return -1, nil, fmt.Errorf("bind %s: %w", address, err)
	}
	if err := unix.Listen(fd, listenBacklog); err != nil {
		unix.Close(fd)
		return -1, nil, fmt.Errorf("listen %s: %w", address, err)
	}

	bound, err := unix.Getsockname(fd)
	if err != nil {
		unix.Close(fd)
		return -1, nil, fmt.Errorf("getsockname: %w", err)
	}
	inet, ok := bound.(*unix.SockaddrInet4)
	if !ok {
		unix.Close(fd)
		return -1, nil, fmt.Errorf("unexpected socket address type %T", bound)
	}
	ip := make(net.IP, net.IPv4len)
	copy(ip, inet.Addr[:])
	return fd, &net.TCPAddr{IP: ip, Port: inet.Port}, nil
}

// acceptConn accepts one pending connection as a non-blocking descriptor.
func acceptConn(fd int) (int, string, error) {
	for {
		nfd, sa, err := unix.Accept4(fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		switch err {
		case nil:
			return nfd, sockaddrString(sa), nil
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			return -1, "", errWouldBlock
		case unix.ECONNABORTED, unix.EPROTO:
			return -1, "", errConnectionAborted
		default:
			return -1, "", err
		}
	}
}

func readConn(fd int, p []byte) (int, error) {
	for {
		n, err := unix.Read(fd, p)
		switch err {
		case nil:
			return n, nil
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			return 0, errWouldBlock
		default:
			return 0, err
		}
	}
}

// writeConn writes as much of p as the socket accepts right now. It returns
// errWouldBlock along with the count written if the socket filled up.
func writeConn(fd int, p []byte) (int, error) {
	written := 0
	for written < len(p) {
		n, err := unix.Write(fd, p[written:])
		switch err {
		case nil:
			written += n
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			return written, errWouldBlock
		default:
			return written, err
		}
	}
	return written, nil
}

func closeConn(fd int) error {
	return unix.Close(fd)
}

func sockaddrString(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return net.JoinHostPort(net.IP(a.Addr[:]).String(), strconv.Itoa(a.Port))
	case *unix.SockaddrInet6:
		return net.JoinHostPort(net.IP(a.Addr[:]).String(), strconv.Itoa(a.Port))
	}
	return "unknown"
}
