package workflow

import (
	"context"
	"errors"

	"github.com/openctemio/scanctl/internal/app/lock"
	"github.com/openctemio/scanctl/pkg/domain/assetlist"
	"github.com/openctemio/scanctl/pkg/domain/credential"
	"github.com/openctemio/scanctl/pkg/domain/policy"
	"github.com/openctemio/scanctl/pkg/domain/scan"
	"github.com/openctemio/scanctl/pkg/domain/shared"
)

// Error kinds reported to callers.
const (
	KindConnection       = "ConnectionError"
	KindInput            = "InputError"
	KindPolicyNotFound   = "PolicyNotFound"
	KindAssetNotFound    = "AssetListNotFound"
	KindCredNotFound     = "CredentialNotFound"
	KindDuplicateScan    = "DuplicateScanError"
	KindScanNotFound     = "ScanNotFound"
	KindAlreadyLaunched  = "AlreadyLaunchedError"
	KindInstanceNotFound = "ScanInstanceNotFound"
	KindNotComplete      = "ScanNotCompleteError"
	KindRemote           = "RemoteError"
	KindSettleTimeout    = "SettleTimeout"
	KindAmbiguous        = "AmbiguousReferenceError"
	KindLockHeld         = "ResourceLocked"
	KindCanceled         = "Canceled"
	KindUnknown          = "Error"
)

// ErrorKind maps err to its error kind name.
func ErrorKind(err error) string {
	var notComplete *scan.NotCompleteError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, shared.ErrConnection):
		return KindConnection
	case errors.As(err, &notComplete):
		return KindNotComplete
	case errors.Is(err, policy.ErrPolicyNotFound):
		return KindPolicyNotFound
	case errors.Is(err, assetlist.ErrAssetListNotFound):
		return KindAssetNotFound
	case errors.Is(err, credential.ErrCredentialNotFound):
		return KindCredNotFound
	case errors.Is(err, scan.ErrDuplicateScan):
		return KindDuplicateScan
	case errors.Is(err, scan.ErrScanNotFound):
		return KindScanNotFound
	case errors.Is(err, scan.ErrAlreadyLaunched):
		return KindAlreadyLaunched
	case errors.Is(err, scan.ErrInstanceNotFound):
		return KindInstanceNotFound
	case errors.Is(err, shared.ErrAmbiguous):
		return KindAmbiguous
	case errors.Is(err, shared.ErrTimeout):
		return KindSettleTimeout
	case errors.Is(err, lock.ErrHeld):
		return KindLockHeld
	case errors.Is(err, shared.ErrInvalidInput):
		return KindInput
	case errors.Is(err, shared.ErrRemote):
		return KindRemote
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindUnknown
	}
}
