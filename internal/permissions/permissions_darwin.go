//go:build darwin

package permissions

/*
#cgo LDFLAGS: -framework AVFoundation -framework Cocoa
#import <AVFoundation/AVFoundation.h>
#import <Cocoa/Cocoa.h>

int checkMicrophonePermission() {
    AVAuthorizationStatus status = [AVCaptureDevice authorizationStatusForMediaType:AVMediaTypeAudio];
    return (int)status;
}

void requestMicrophonePermission() {
    [AVCaptureDevice requestAccessForMediaType:AVMediaTypeAudio completionHandler:^(BOOL granted) {}];
}

int checkAccessibilityPermission() {
    NSDictionary *options = @{(__bridge id)kAXTrustedCheckOptionPrompt: @YES};
    return AXIsProcessTrustedWithOptions((__bridge CFDictionaryRef)options) ? 1 : 0;
}
*/
import "C"

import (
	"fmt"
	"os"
)

const (
	PermissionNotDetermined = 0
	PermissionRestricted    = 1
	PermissionDenied        = 2
	PermissionAuthorized    = 3
)

// CheckMicrophone returns the current microphone permission status
func CheckMicrophone() int {
	return int(C.checkMicrophonePermission())
}

// RequestMicrophone triggers the system microphone permission dialog
func RequestMicrophone() {
	C.requestMicrophonePermission()
}

// CheckAccessibility reports whether the app may register global hotkeys.
// The system prompt is shown as a side effect when it may not.
func CheckAccessibility() bool {
	return int(C.checkAccessibilityPermission()) == 1
}

// EnsureMicrophone fails unless capture is authorized, asking the user
// when the status is still undetermined
func EnsureMicrophone() error {
	switch status := CheckMicrophone(); status {
	case PermissionAuthorized:
		return nil
	case PermissionNotDetermined:
		fmt.Fprintln(os.Stderr, "⚠️  Microphone permission required, check the system prompt")
		RequestMicrophone()
		return ErrMicrophone
	default:
		fmt.Fprintln(os.Stderr, "⚠️  Microphone access is blocked")
		fmt.Fprintln(os.Stderr, "   Go to: System Settings → Privacy & Security → Microphone")
		return fmt.Errorf("%w (status %d)", ErrMicrophone, status)
	}
}

// EnsurePermissions checks the microphone, and accessibility when a global
// hotkey is going to be registered
func EnsurePermissions(hotkeys bool) error {
	if err := EnsureMicrophone(); err != nil {
		return err
	}

	if hotkeys && !CheckAccessibility() {
		fmt.Fprintln(os.Stderr, "⚠️  Accessibility permission required for hotkeys")
		fmt.Fprintln(os.Stderr, "   Go to: System Settings → Privacy & Security → Accessibility")
		return ErrAccessibility
	}

	return nil
}
