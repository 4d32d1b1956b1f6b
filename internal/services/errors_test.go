package services_test

import (
	"errors"
	"strings"
	"testing"

	"kodarr/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrConnection, "kodi", "VideoLibrary.Scan", "living room", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrConnection) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"kodi", "VideoLibrary.Scan", "living room"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrProtocol) {
		t.Fatalf("expected protocol marker by default, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestWorkflowFatalClassification(t *testing.T) {
	nfo := services.Wrap(services.ErrNFOTimeout, "events", "wait nfo", "missing", nil)
	if !services.IsWorkflowFatal(nfo) {
		t.Fatal("expected nfo timeout to be workflow fatal")
	}
	if services.IsHostUnavailable(nfo) {
		t.Fatal("nfo timeout is not a host failure")
	}

	for _, marker := range []error{
		services.ErrConnection,
		services.ErrAuth,
		services.ErrProtocol,
		services.ErrTimeout,
		services.ErrRemote,
		services.ErrScanTimeout,
	} {
		err := services.Wrap(marker, "kodi", "call", "", errors.New("io"))
		if services.IsWorkflowFatal(err) {
			t.Fatalf("%v should not be workflow fatal", marker)
		}
		if !services.IsHostUnavailable(err) {
			t.Fatalf("%v should mark the host unavailable", marker)
		}
	}
}
