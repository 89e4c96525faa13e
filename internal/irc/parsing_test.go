package irc

import (
	"strings"
	"testing"
)

func TestCheckAddressed_Separators(t *testing.T) {
	for _, msg := range []string{"toolshack", "toolshack: draw a cat", "toolshack, hi", "toolshack what now"} {
		if !CheckAddressed(msg, "toolshack") {
			t.Errorf("%q should address the bot", msg)
		}
	}
	for _, msg := range []string{"toolshackbot: hi", "hey toolshack", "Toolshack: hi", ""} {
		if CheckAddressed(msg, "toolshack") {
			t.Errorf("%q should not address the bot", msg)
		}
	}
}

func TestCheckAddressed_EmptyNickMatchesAll(t *testing.T) {
	if !CheckAddressed("anything", "") {
		t.Error("an empty nick addresses every line")
	}
}

func TestCheckAdmin_NoAdminsAdmitsEveryone(t *testing.T) {
	if !CheckAdmin("stranger!u@example.net", nil) {
		t.Error("an empty admin list admits everyone")
	}
}

func TestCheckAdmin_WholeHostmaskMustMatch(t *testing.T) {
	admins := []string{"ops!ops@bastion.example.net", "root!~root@2001:db8::1"}

	if !CheckAdmin("root!~root@2001:db8::1", admins) {
		t.Error("second admin entry should match")
	}
	for _, mask := range []string{"ops!ops@other.example.net", "ops", "OPS!ops@bastion.example.net"} {
		if CheckAdmin(mask, admins) {
			t.Errorf("%q must not be admin", mask)
		}
	}
}

func TestCheckValid_Matrix(t *testing.T) {
	// addressed, addressedMode, private, args, want
	cases := [][5]any{
		{true, true, false, 1, true},
		{false, true, false, 3, false},
		{false, false, false, 1, true},
		{false, true, true, 1, true},
		{true, true, true, 0, false},
	}
	for i, c := range cases {
		got := CheckValid(c[0].(bool), c[1].(bool), c[2].(bool), c[3].(int))
		if got != c[4].(bool) {
			t.Errorf("case %d %v: got %v", i, c, got)
		}
	}
}

func TestCheckPrivate_ChannelTargets(t *testing.T) {
	if CheckPrivate("#toolshack") {
		t.Error("channel target is not private")
	}
	if !CheckPrivate("toolshack") {
		t.Error("nick target is private")
	}
}

func TestValidateHostmask_Accepts(t *testing.T) {
	for _, mask := range []string{
		"ops!ops@bastion.example.net",
		"[away]!~idle@user/away",
		"dev-1!dev_1@10.0.0.7",
		"root!root@2001:db8::1",
		"`tick`!t.k@gateway/web/irccloud.com/x-abc",
	} {
		if err := ValidateHostmask(mask); err != nil {
			t.Errorf("%q: unexpected error %v", mask, err)
		}
	}
}

func TestValidateHostmask_Rejects(t *testing.T) {
	cases := map[string]string{
		"":                     "cannot be empty",
		"ops@host":             "must contain '!'",
		"ops!ops":              "must contain '@'",
		"ops@host!ops":         "'!' must come before '@'",
		"!ops@host":            "nick cannot be empty",
		"ops!@host":            "user cannot be empty",
		"ops!ops@":             "host cannot be empty",
		"1ops!ops@host":        "invalid nick",
		"ops!o ps@host":        "invalid user",
		"ops!ops@bad..host":    "invalid host",
		"ops!ops@2001:db8::zz": "invalid host",
	}
	for mask, want := range cases {
		err := ValidateHostmask(mask)
		if err == nil {
			t.Errorf("%q: expected error", mask)
			continue
		}
		if !strings.Contains(err.Error(), want) {
			t.Errorf("%q: expected %q in %q", mask, want, err)
		}
	}
}
