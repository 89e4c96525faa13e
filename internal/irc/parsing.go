package irc

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
)

// CheckAddressed returns true if message starts with botNick followed by a separator or end of string.
func CheckAddressed(message, botNick string) bool {
	// If botNick is empty, it matches everything (legacy behavior from HasPrefix)
	if botNick == "" {
		return true
	}
	if !strings.HasPrefix(message, botNick) {
		return false
	}
	if len(message) == len(botNick) {
		return true
	}
	// Check that the next character is a separator
	next := message[len(botNick)]
	return next == ' ' || next == ':' || next == ','
}

// CheckAdmin returns true if hostmask matches any admin in the list.
// WARNING: Returns true if adminList is empty (legacy behavior - everyone is admin).
func CheckAdmin(hostmask string, adminList []string) bool {
	if len(adminList) == 0 {
		return true
	}
	for _, admin := range adminList {
		if admin == hostmask {
			return true
		}
	}
	return false
}

// CheckValid determines if a message should be processed.
// Returns true if:
// - Bot was addressed directly, OR
// - Addressed mode is disabled (respond to all), OR
// - Message is private (DM)
// AND there's at least one argument.
func CheckValid(isAddressed, addressedMode, isPrivate bool, argCount int) bool {
	return (isAddressed || !addressedMode || isPrivate) && argCount > 0
}

// CheckPrivate returns true if target is not a channel (doesn't start with #).
func CheckPrivate(target string) bool {
	return !strings.HasPrefix(target, "#")
}

var (
	nickPattern = regexp.MustCompile(`^[A-Za-z\[\]\\^_` + "`" + `{|}][A-Za-z0-9\[\]\\^_` + "`" + `{|}-]*$`)
	userPattern = regexp.MustCompile(`^~?[A-Za-z0-9_.\-]+$`)
	hostLabel   = regexp.MustCompile(`^[A-Za-z0-9/_\-]+$`)
)

// ValidateHostmask checks that an admin entry has the nick!user@host form
// CheckAdmin compares against.
func ValidateHostmask(hostmask string) error {
	if hostmask == "" {
		return errors.New("hostmask cannot be empty")
	}
	bang := strings.Index(hostmask, "!")
	if bang < 0 {
		return fmt.Errorf("hostmask %q must contain '!'", hostmask)
	}
	at := strings.Index(hostmask, "@")
	if at < 0 {
		return fmt.Errorf("hostmask %q must contain '@'", hostmask)
	}
	if bang > at {
		return fmt.Errorf("hostmask %q: '!' must come before '@'", hostmask)
	}

	nick, user, host := hostmask[:bang], hostmask[bang+1:at], hostmask[at+1:]
	switch {
	case nick == "":
		return fmt.Errorf("hostmask %q: nick cannot be empty", hostmask)
	case user == "":
		return fmt.Errorf("hostmask %q: user cannot be empty", hostmask)
	case host == "":
		return fmt.Errorf("hostmask %q: host cannot be empty", hostmask)
	}
	if !nickPattern.MatchString(nick) {
		return fmt.Errorf("hostmask %q: invalid nick %q", hostmask, nick)
	}
	if !userPattern.MatchString(user) {
		return fmt.Errorf("hostmask %q: invalid user %q", hostmask, user)
	}
	if !validHost(host) {
		return fmt.Errorf("hostmask %q: invalid host %q", hostmask, host)
	}
	return nil
}

func validHost(host string) bool {
	if strings.Contains(host, ":") {
		return net.ParseIP(host) != nil
	}
	for _, label := range strings.Split(host, ".") {
		if !hostLabel.MatchString(label) {
			return false
		}
	}
	return true
}
