package yxc

import "fmt"

// Kind names a YXC semantic failure reported through the response_code
// envelope field.
type Kind string

const (
	KindInitializing        Kind = "initializing"
	KindInternalError       Kind = "internal_error"
	KindInvalidRequest      Kind = "invalid_request"
	KindInvalidParameter    Kind = "invalid_parameter"
	KindGuarded             Kind = "guarded"
	KindTimeout             Kind = "timeout"
	KindFirmwareUpdating    Kind = "firmware_updating"
	KindAccessError         Kind = "access_error"
	KindStreamingError      Kind = "streaming_error"
	KindWrongUsername       Kind = "wrong_username"
	KindWrongPassword       Kind = "wrong_password"
	KindAccountExpired      Kind = "account_expired"
	KindAccountDisconnected Kind = "account_disconnected"
	KindAccountLimitReached Kind = "account_limit_reached"
	KindServerMaintenance   Kind = "server_maintenance"
	KindInvalidAccount      Kind = "invalid_account"
	KindLicenseError        Kind = "license_error"
	KindReadOnlyMode        Kind = "read_only_mode"
	KindMaxStations         Kind = "max_stations"
	KindAccessDenied        Kind = "access_denied"
	KindUnknownError        Kind = "unknown_error"
)

var codeKinds = map[int]Kind{
	1:   KindInitializing,
	2:   KindInternalError,
	3:   KindInvalidRequest,
	4:   KindInvalidParameter,
	5:   KindGuarded,
	6:   KindTimeout,
	99:  KindFirmwareUpdating,
	100: KindAccessError,
	101: KindStreamingError,
	102: KindWrongUsername,
	103: KindWrongPassword,
	104: KindAccountExpired,
	105: KindAccountDisconnected,
	106: KindAccountLimitReached,
	107: KindServerMaintenance,
	108: KindInvalidAccount,
	109: KindLicenseError,
	110: KindReadOnlyMode,
	111: KindMaxStations,
	112: KindAccessDenied,
}

// KindForCode maps a non-zero response_code to its error kind. Unlisted
// codes map to KindUnknownError.
func KindForCode(code int) Kind {
	if kind, ok := codeKinds[code]; ok {
		return kind
	}
	return KindUnknownError
}

// Error is a semantic failure reported by a device. The raw body is kept
// for logging; callers match on Kind.
type Error struct {
	Op      string
	Code    int
	Kind    Kind
	RawBody []byte
}

func (e *Error) Error() string {
	return fmt.Sprintf("yxc %s: %s (response_code %d)", e.Op, e.Kind, e.Code)
}
