package chat

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const listCommand = "/list"

var (
	msgMalformedLogin   = []byte("error: login format is \"<name> <password>\"\n")
	msgBadCredentials   = []byte("error: user does not exist or wrong password\n")
	msgDeliveryFailed   = []byte("delivery failed, recipient may be offline\n")
	msgShutdownFarewell = []byte("Server is shutting down. Goodbye!\n")
)

// firstLine returns unit up to its first newline with any trailing carriage
// return removed.
func firstLine(unit []byte) string {
	if i := bytes.IndexByte(unit, '\n'); i >= 0 {
		unit = unit[:i]
	}
	return strings.TrimRight(string(unit), "\r")
}

// parseLogin extracts the name and password from a login attempt. Only the
// first line counts, and it has to contain exactly two tokens. Names are
// normalized to NFC so that visually identical names compare equal.
func parseLogin(unit []byte, maxNameLength int) (name, password string, ok bool) {
	fields := strings.Fields(firstLine(unit))
	if len(fields) != 2 {
		return "", "", false
	}
	name = norm.NFC.String(fields[0])
	if len(name) > maxNameLength {
		return "", "", false
	}
	return name, fields[1], true
}

// parsePrivate splits "@target body" into its parts. The target runs from the
// '@' to the first space, is normalized like login names and is cut to at
// most maxNameLength bytes without splitting a rune. Without a space the body
// is empty.
func parsePrivate(unit []byte, maxNameLength int) (target, body string) {
	line := strings.TrimPrefix(firstLine(unit), "@")
	target, body, _ = strings.Cut(line, " ")
	target = norm.NFC.String(target)
	if len(target) > maxNameLength {
		cut := maxNameLength
		for cut > 0 && !utf8.RuneStart(target[cut]) {
			cut--
		}
		target = target[:cut]
	}
	return target, body
}

func isListCommand(unit []byte) bool {
	return bytes.HasPrefix(unit, []byte(listCommand))
}

func isPrivateMessage(unit []byte) bool {
	return len(unit) > 0 && unit[0] == '@'
}

func alreadyLoggedInMessage(name string) []byte {
	return []byte(fmt.Sprintf("error: %s is already logged in\n", name))
}

func joinMessage(name string, online int) []byte {
	return []byte(fmt.Sprintf("============= %s joined the chat ============= [online: %d]\n", name, online))
}

func leaveMessage(name string, online int) []byte {
	return []byte(fmt.Sprintf("============= %s left the chat ============= [online: %d]\n", name, online))
}

func whisperMessage(from, body string) []byte {
	return []byte(fmt.Sprintf("%s whispers to you: %s\n", from, body))
}

func whisperConfirmation(to, body string) []byte {
	return []byte(fmt.Sprintf("you whisper to %s: %s\n", to, body))
}

func notFoundMessage(name string) []byte {
	return []byte(fmt.Sprintf("user %s not found or offline\n", name))
}

// rosterMessage renders the /list reply.
func rosterMessage(names []string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "online users: %d\n", len(names))
	for _, name := range names {
		fmt.Fprintf(&b, " - %s\n", name)
	}
	b.WriteString("----\n")
	return b.Bytes()
}

// publicMessage prefixes the sender's name to the unit exactly as received.
func publicMessage(from string, unit []byte) []byte {
	msg := make([]byte, 0, len(from)+2+len(unit))
	msg = append(msg, from...)
	msg = append(msg, ": "...)
	return append(msg, unit...)
}
