package session

import "github.com/wolfman30/prescription-ai-portal/internal/notify"

var (
	noticeSignupOK = notify.Notice{
		Title:       "Account created",
		Description: "Your account has been created successfully!",
	}
	noticeLoginOK = notify.Notice{
		Title:       "Login successful",
		Description: "Welcome to Prescription AI!",
	}
	noticeLogoutOK = notify.Notice{
		Title:       "Logged out",
		Description: "You have been logged out successfully.",
	}
)

func failureNotice(title string, err error) notify.Notice {
	return notify.Notice{Title: title, Description: UserMessage(err), Variant: notify.VariantDestructive}
}

const (
	titleSignupFailed  = "Registration failed"
	titleLoginFailed   = "Login failed"
	titleLogoutFailed  = "Logout failed"
	titleProfileFailed = "Profile unavailable"
	titleFetchFailed   = "Unable to load"
)
