package services

import "errors"

type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	// KindConflict covers wrong-state actions: duplicates, closed transitions, full rosters.
	KindConflict
	// KindDuplicate is a unique-identity clash such as a registered email.
	KindDuplicate
)

// Error is a workflow failure with a category the HTTP layer maps to a status.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// KindOf returns the category of err, KindInternal for anything unclassified.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

var (
	ErrEmailExists        = newError(KindDuplicate, "Email already registered")
	ErrInvalidCredentials = newError(KindUnauthorized, "Invalid email or password")
	ErrInvalidToken       = newError(KindUnauthorized, "Invalid or expired token")
	ErrUserBlocked        = newError(KindForbidden, "Account blocked")
	ErrUserNotFound       = newError(KindNotFound, "User not found")
	ErrWrongPassword      = newError(KindValidation, "Current password is incorrect")
	ErrInvalidResetToken  = newError(KindValidation, "Invalid or expired reset token")
	ErrCaptchaFailed      = newError(KindForbidden, "reCAPTCHA verification failed")

	ErrEventNotFound      = newError(KindNotFound, "Event not found")
	ErrEventNotVisible    = newError(KindForbidden, "Event not available")
	ErrNotEventOwner      = newError(KindForbidden, "Not authorized to modify this event")
	ErrAlreadyProcessed   = newError(KindConflict, "Event already processed")
	ErrEventNotApproved   = newError(KindForbidden, "Event is not approved")
	ErrEventStarted       = newError(KindConflict, "Event has already started")
	ErrCreatorCannotJoin  = newError(KindConflict, "The creator cannot join their own event")
	ErrAlreadyParticipant = newError(KindConflict, "Already participating in this event")
	ErrNotParticipant     = newError(KindConflict, "Not participating in this event")
	ErrCapacityExceeded   = newError(KindConflict, "Event capacity exceeded")
	ErrCapacityBelowCount = newError(KindValidation, "Capacity cannot be lower than the confirmed participants")
	ErrAlreadyReported    = newError(KindConflict, "Event already reported by this user")
	ErrCannotReportOwn    = newError(KindConflict, "Cannot report your own event")

	ErrReportNotFound      = newError(KindNotFound, "Report not found")
	ErrReportAlreadyClosed = newError(KindConflict, "Report already closed")

	ErrChatDisabled      = newError(KindForbidden, "Chat is disabled for this event")
	ErrChatAccessDenied  = newError(KindForbidden, "Not authorized to access this chat")
	ErrMessageNotFound   = newError(KindNotFound, "Message not found")
	ErrNotMessageAuthor  = newError(KindForbidden, "Not authorized to modify this message")
	ErrEditWindowExpired = newError(KindConflict, "Messages can only be edited within 15 minutes")
	ErrSystemMessageEdit = newError(KindConflict, "System messages cannot be edited")

	ErrNotificationNotFound = newError(KindNotFound, "Notification not found")

	ErrCannotChangeOwnRole = newError(KindConflict, "Cannot change your own role")
	ErrCannotBlockAdmin    = newError(KindForbidden, "Cannot block an administrator")

	ErrImageNotFound = newError(KindNotFound, "Image not found")
	ErrInvalidImage  = newError(KindValidation, "Invalid image file")
	ErrImageTooLarge = newError(KindValidation, "Image exceeds the maximum size")
	ErrImageRejected = newError(KindValidation, "Image rejected: violates community guidelines")
	ErrNotImageOwner = newError(KindForbidden, "Not authorized to delete this image")
)
