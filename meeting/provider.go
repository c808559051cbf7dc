// Package meeting describes the meeting providers the recorder knows about.
// Each provider maps to a profile of ordered candidate locators per UI control,
// so supporting a new provider is a data change rather than new control flow.
package meeting

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Provider identifies a video-conferencing service.
type Provider string

const (
	ProviderMeet    Provider = "meet"
	ProviderZoom    Provider = "zoom"
	ProviderTeams   Provider = "teams"
	ProviderGeneric Provider = "generic"
)

// Control names used in steps and logs
const (
	ControlDisplayName    = "display_name"
	ControlMuteMicrophone = "mute_microphone"
	ControlMuteCamera     = "mute_camera"
	ControlMeetingID      = "meeting_id"
	ControlPasscode       = "passcode"
	ControlBrowserJoin    = "join_from_browser"
	ControlJoin           = "join"
	ControlLeave          = "leave"
	ControlLeaveConfirm   = "leave_confirm"
)

// Action is what a step does with the element it finds.
type Action int

const (
	ActionClick Action = iota
	ActionFill
	// ActionFillSubmit types a value and then clicks the step's Submit locators.
	ActionFillSubmit
)

// Value selects which caller input a fill step types.
type Value int

const (
	ValueNone Value = iota
	ValueDisplayName
	ValueMeetingID
	ValuePasscode
)

// Inputs carries the values typed into fill steps.
type Inputs struct {
	DisplayName string
	MeetingID   string
	Passcode    string
}

// Get returns the input selected by v.
func (in Inputs) Get(v Value) string {
	switch v {
	case ValueDisplayName:
		return in.DisplayName
	case ValueMeetingID:
		return in.MeetingID
	case ValuePasscode:
		return in.Passcode
	}
	return ""
}

// Step is one best-effort UI interaction. Locators are tried in order and the
// first one that resolves wins.
type Step struct {
	Control  string
	Action   Action
	Value    Value
	Locators []Locator
	Submit   []Locator
}

// Profile is the data describing how to drive one provider's web client.
type Profile struct {
	Provider Provider
	// Origins are granted microphone, camera and display-capture permission.
	Origins []string
	Join    []Step
	Leave   []Step
}

var (
	joinTextFallback = ByText("button, span, div[role=button]", `^\s*(Join now|Join|Ask to join|Присоединиться|Войти)\s*$`)

	profiles = map[Provider]Profile{
		ProviderMeet: {
			Provider: ProviderMeet,
			Origins:  []string{"https://meet.google.com"},
			Join: []Step{
				{
					Control: ControlDisplayName,
					Action:  ActionFill,
					Value:   ValueDisplayName,
					Locators: []Locator{
						ByCSS(`input[placeholder*="name" i]`),
						ByCSS(`input[placeholder*="имя" i]`),
						ByCSS(`input[aria-label*="name" i]`),
					},
				},
				{
					Control: ControlMuteMicrophone,
					Locators: []Locator{
						ByCSS(`[role="button"][aria-label*="microphone" i][data-is-muted="false"]`),
						ByCSS(`[data-is-muted="false"]`),
					},
				},
				{
					Control: ControlMuteCamera,
					Locators: []Locator{
						ByCSS(`[role="button"][aria-label*="camera" i][data-is-muted="false"]`),
						ByCSS(`[data-is-video-muted="false"]`),
					},
				},
				{
					Control: ControlJoin,
					Locators: []Locator{
						ByCSS(`[data-mdc-dialog-action="ok"]`),
						ByCSS(`button[jsname="Qx7uuf"]`),
						ByText("span", `Присоединиться`),
						ByText("span", `Join now|Ask to join`),
						ByCSS(`.NPEfkd`),
						ByCSS(`[data-promo-anchor-id="start_call"]`),
						joinTextFallback,
					},
				},
			},
			Leave: []Step{
				{
					Control: ControlLeave,
					Locators: []Locator{
						ByCSS(`[data-tooltip*="Покинуть"]`),
						ByCSS(`[data-tooltip*="Leave"]`),
						ByCSS(`button[aria-label*="Leave call" i]`),
						ByCSS(`button[data-mdc-dialog-action="ok"]`),
						ByCSS(`.VfPpkd-Bz112c-LgbsSe[jsname="h5Jlkc"]`),
					},
				},
			},
		},
		ProviderZoom: {
			Provider: ProviderZoom,
			Origins:  []string{"https://zoom.us", "https://app.zoom.us"},
			Join: []Step{
				{
					Control:  ControlMeetingID,
					Action:   ActionFillSubmit,
					Value:    ValueMeetingID,
					Locators: []Locator{ByCSS(`#meeting-id-input`), ByCSS(`#join-confno`)},
					Submit:   []Locator{ByCSS(`#join-btn`), ByCSS(`#btnSubmit`)},
				},
				{
					Control:  ControlPasscode,
					Action:   ActionFillSubmit,
					Value:    ValuePasscode,
					Locators: []Locator{ByCSS(`input[type="password"]`)},
					Submit:   []Locator{ByCSS(`button[type="submit"]`)},
				},
				{
					Control: ControlBrowserJoin,
					Locators: []Locator{
						ByCSS(`a[href*="wc/join"]`),
						ByText("a, button", `Join from (your|Your) browser`),
					},
				},
				{
					Control:  ControlDisplayName,
					Action:   ActionFill,
					Value:    ValueDisplayName,
					Locators: []Locator{ByCSS(`#input-for-name`), ByCSS(`#inputname`)},
				},
				{
					Control:  ControlMuteMicrophone,
					Locators: []Locator{ByCSS(`button[aria-label="Mute"]`), ByCSS(`#preview-audio-control-button[aria-label*="Mute"]`)},
				},
				{
					Control:  ControlMuteCamera,
					Locators: []Locator{ByCSS(`button[aria-label="Stop Video"]`), ByCSS(`#preview-video-control-button[aria-label*="Stop"]`)},
				},
				{
					Control: ControlJoin,
					Locators: []Locator{
						ByCSS(`button.preview-join-button`),
						ByCSS(`#joinBtn`),
						joinTextFallback,
					},
				},
			},
			Leave: []Step{
				{
					Control:  ControlLeave,
					Locators: []Locator{ByCSS(`button[aria-label*="Leave"]`), ByCSS(`.footer__leave-btn`)},
				},
				{
					Control:  ControlLeaveConfirm,
					Locators: []Locator{ByCSS(`.leave-meeting-options__btn`), ByText("button", `^Leave Meeting$`)},
				},
			},
		},
		ProviderTeams: {
			Provider: ProviderTeams,
			Origins:  []string{"https://teams.microsoft.com", "https://teams.live.com"},
			Join: []Step{
				{
					Control:  ControlBrowserJoin,
					Locators: []Locator{ByCSS(`button[data-tid="joinOnWeb"]`), ByText("button", `Continue on this browser`)},
				},
				{
					Control:  ControlDisplayName,
					Action:   ActionFill,
					Value:    ValueDisplayName,
					Locators: []Locator{ByCSS(`input[data-tid="prejoin-display-name-input"]`), ByCSS(`input[placeholder*="name" i]`)},
				},
				{
					Control:  ControlMuteMicrophone,
					Locators: []Locator{ByCSS(`[data-tid="toggle-mute"][aria-checked="true"]`)},
				},
				{
					Control:  ControlMuteCamera,
					Locators: []Locator{ByCSS(`[data-tid="toggle-video"][aria-checked="true"]`)},
				},
				{
					Control:  ControlJoin,
					Locators: []Locator{ByCSS(`button[data-tid="prejoin-join-button"]`), joinTextFallback},
				},
			},
			Leave: []Step{
				{
					Control:  ControlLeave,
					Locators: []Locator{ByCSS(`button[data-tid="hangup-main-btn"]`), ByCSS(`#hangup-button`)},
				},
			},
		},
		ProviderGeneric: {
			Provider: ProviderGeneric,
			Join: []Step{
				{
					Control:  ControlDisplayName,
					Action:   ActionFill,
					Value:    ValueDisplayName,
					Locators: []Locator{ByCSS(`input[placeholder*="name" i]`)},
				},
				{
					Control:  ControlJoin,
					Locators: []Locator{joinTextFallback},
				},
			},
			Leave: []Step{
				{
					Control:  ControlLeave,
					Locators: []Locator{ByText("button", `^\s*Leave`)},
				},
			},
		},
	}
)

// Lookup returns the profile registered for p.
func Lookup(p Provider) (Profile, bool) {
	profile, ok := profiles[p]
	return profile, ok
}

// ParseProvider converts a configured provider name.
func ParseProvider(name string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := profiles[p]; !ok {
		return "", fmt.Errorf("unknown meeting provider %q", name)
	}
	return p, nil
}

// Detect maps a meeting URL to its provider by hostname.
func Detect(rawURL string) Provider {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ProviderGeneric
	}

	host := strings.ToLower(u.Hostname())
	switch {
	case host == "meet.google.com":
		return ProviderMeet
	case host == "zoom.us" || strings.HasSuffix(host, ".zoom.us"):
		return ProviderZoom
	case host == "teams.microsoft.com" || host == "teams.live.com":
		return ProviderTeams
	}
	return ProviderGeneric
}

// Origins returns the permission allow-list across every known provider.
func Origins() []string {
	var origins []string
	for _, profile := range profiles {
		origins = append(origins, profile.Origins...)
	}
	sort.Strings(origins)
	return origins
}
