package main

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connects to a chat server, sending stdin lines and printing what it receives",
	RunE:  ConnectCommand,
}

var AddressFlag string

func ConnectCommand(cmd *cobra.Command, args []string) error {
	conn, err := net.Dial("tcp", AddressFlag)
	if err != nil {
		return fmt.Errorf("error connecting to %s: %w", AddressFlag, err)
	}
	defer conn.Close()
	fmt.Printf("connected to %s, log in with \"<name> <password>\"\n", AddressFlag)

	done := make(chan error, 2)
	go func() { done <- receiveLoop(conn, os.Stdout) }()
	go func() { done <- sendLoop(os.Stdin, conn) }()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-done:
		return err
	case <-c:
		return nil
	}
}

// receiveLoop copies everything the server sends to w until the connection
// closes.
func receiveLoop(conn net.Conn, w io.Writer) error {
	if _, err := io.Copy(w, conn); err != nil {
		return fmt.Errorf("error reading from server: %w", err)
	}
	fmt.Fprintln(w, "connection closed by server")
	return nil
}

// sendLoop sends r to the server one line at a time.
func sendLoop(r io.Reader, conn net.Conn) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if _, err := conn.Write(append(scanner.Bytes(), '\n')); err != nil {
			return fmt.Errorf("error writing to server: %w", err)
		}
	}
	return scanner.Err()
}
