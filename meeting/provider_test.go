package meeting

import (
	"strings"
	"testing"
)

func TestDetect(t *testing.T) {
	cases := map[string]Provider{
		"https://meet.google.com/abc-defg-hij":            ProviderMeet,
		"https://us02web.zoom.us/j/123456789?pwd=xyz":     ProviderZoom,
		"https://zoom.us/wc/join/123456789":               ProviderZoom,
		"https://teams.microsoft.com/l/meetup-join/19%3a": ProviderTeams,
		"https://teams.live.com/meet/9876":                ProviderTeams,
		"https://example.com/room":                        ProviderGeneric,
		"://not a url":                                    ProviderGeneric,
	}

	for raw, want := range cases {
		if got := Detect(raw); got != want {
			t.Errorf("Detect(%q) = %s, want %s", raw, got, want)
		}
	}
}

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider(" Zoom ")
	if err != nil {
		t.Fatalf("ParseProvider failed: %v", err)
	}
	if p != ProviderZoom {
		t.Errorf("Expected zoom, got %s", p)
	}

	if _, err := ParseProvider("webex"); err == nil {
		t.Error("ParseProvider should reject unknown providers")
	}
}

func TestEveryProfileHasJoinAndLeave(t *testing.T) {
	for _, p := range []Provider{ProviderMeet, ProviderZoom, ProviderTeams, ProviderGeneric} {
		profile, ok := Lookup(p)
		if !ok {
			t.Fatalf("No profile for %s", p)
		}

		hasJoin := false
		for _, step := range profile.Join {
			if len(step.Locators) == 0 {
				t.Errorf("%s: step %s has no locators", p, step.Control)
			}
			if step.Action == ActionFillSubmit && len(step.Submit) == 0 {
				t.Errorf("%s: fill-submit step %s has no submit locators", p, step.Control)
			}
			if step.Control == ControlJoin {
				hasJoin = true
			}
		}
		if !hasJoin {
			t.Errorf("%s: profile has no join step", p)
		}
		if len(profile.Leave) == 0 {
			t.Errorf("%s: profile has no leave steps", p)
		}
	}
}

func TestOrigins(t *testing.T) {
	origins := Origins()

	want := []string{
		"https://meet.google.com",
		"https://zoom.us",
		"https://teams.microsoft.com",
	}
	for _, w := range want {
		found := false
		for _, o := range origins {
			if o == w {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Origins() missing %s", w)
		}
	}

	for _, o := range origins {
		if !strings.HasPrefix(o, "https://") {
			t.Errorf("Origin %s should be https", o)
		}
	}
}

func TestInputsGet(t *testing.T) {
	in := Inputs{DisplayName: "Bot", MeetingID: "123", Passcode: "secret"}

	if in.Get(ValueDisplayName) != "Bot" {
		t.Error("Expected display name")
	}
	if in.Get(ValueMeetingID) != "123" {
		t.Error("Expected meeting ID")
	}
	if in.Get(ValuePasscode) != "secret" {
		t.Error("Expected passcode")
	}
	if in.Get(ValueNone) != "" {
		t.Error("ValueNone should be empty")
	}
}

func TestLocatorString(t *testing.T) {
	if got := ByCSS("#join").String(); got != "css(#join)" {
		t.Errorf("Unexpected css locator string %q", got)
	}
	if got := ByText("button", "Join").String(); got != "text(button ~ /Join/)" {
		t.Errorf("Unexpected text locator string %q", got)
	}
}
