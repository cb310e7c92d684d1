package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// NotFound
	ErrInstanceNotFound  = errors.New("instance not found")
	ErrModuleNotFound    = errors.New("module not found")
	ErrExtensionNotFound = errors.New("extension not found")
	ErrComponentNotFound = errors.New("component not found")

	// Configuration
	ErrValidation   = errors.New("validation failed")
	ErrMissingField = errors.New("missing required field")
	ErrInvalidPort  = errors.New("invalid port")

	// Conflict
	ErrInstanceExists  = errors.New("instance name already exists")
	ErrIDMismatch      = errors.New("manifest id does not match directory name")
	ErrHasDependents   = errors.New("extension has active dependents")
	ErrInUse           = errors.New("resource is in use")
	ErrPortCollision   = errors.New("port already in use by a running instance")
	ErrInstanceRunning = errors.New("instance is running")

	// Dependency
	ErrDependencyMissing           = errors.New("dependency not mounted")
	ErrDependencyNotEnabled        = errors.New("dependency not enabled")
	ErrComponentVersionUnsatisfied = errors.New("dependency version requirement not satisfied")

	// Process
	ErrTerminationFailed = errors.New("process termination failed")
	ErrAdapterSpawn      = errors.New("adapter failed to spawn")
	ErrAdapterExit       = errors.New("adapter exited with a nonzero status")

	// Network/Update
	ErrNoReleases        = errors.New("no releases available")
	ErrAssetUnresolved   = errors.New("asset could not be resolved from any release")
	ErrDownloadFailed    = errors.New("download failed")
	ErrExtractionFailed  = errors.New("extraction failed")
	ErrUnsafeArchivePath = errors.New("archive entry escapes target directory")
	ErrNeedsSideUpdater  = errors.New("component cannot self-apply; needs side-loaded updater")
	ErrNotDownloaded     = errors.New("component has not been downloaded")

	// Auth
	ErrAuthTokenMismatch = errors.New("auth token mismatch")
)

// CodedError is implemented by domain errors that carry a machine-readable
// error_code plus related identifiers, mirroring the extension manager's
// original error taxonomy.
type CodedError interface {
	error
	Code() string
	Related() []string
}

// TaxonomyError is a concrete CodedError used across instance, extension,
// and update error paths.
type TaxonomyError struct {
	Underlying error
	ErrCode    string
	RelatedIDs []string
	Msg        string
}

func (e *TaxonomyError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Underlying != nil {
		return e.Underlying.Error()
	}
	return e.ErrCode
}

func (e *TaxonomyError) Unwrap() error { return e.Underlying }

func (e *TaxonomyError) Code() string { return e.ErrCode }

func (e *TaxonomyError) Related() []string { return e.RelatedIDs }

func NewTaxonomyError(code, msg string, underlying error, related ...string) *TaxonomyError {
	return &TaxonomyError{Underlying: underlying, ErrCode: code, RelatedIDs: related, Msg: msg}
}

// Convenience constructors matching the extension manager's original
// vocabulary (not_found, dependency_missing, dependency_not_enabled,
// component_version_unsatisfied, has_dependents, in_use, id_mismatch).

func ErrNotFound(kind, id string) *TaxonomyError {
	return NewTaxonomyError("not_found", kind+" not found: "+id, ErrExtensionNotFound, id)
}

func ErrDependencyMissingFor(dep string) *TaxonomyError {
	return NewTaxonomyError("dependency_missing", "dependency not mounted: "+dep, ErrDependencyMissing, dep)
}

func ErrDependencyNotEnabledFor(dep string) *TaxonomyError {
	return NewTaxonomyError("dependency_not_enabled", "dependency not enabled: "+dep, ErrDependencyNotEnabled, dep)
}

func ErrVersionUnsatisfiedFor(dep, required string) *TaxonomyError {
	return NewTaxonomyError("component_version_unsatisfied", "dependency "+dep+" requires "+required, ErrComponentVersionUnsatisfied, dep, required)
}

func ErrHasDependentsFor(deps ...string) *TaxonomyError {
	return NewTaxonomyError("has_dependents", "extension has active dependents", ErrHasDependents, deps...)
}

func ErrInUseFor(id string) *TaxonomyError {
	return NewTaxonomyError("in_use", "referenced by a running instance: "+id, ErrInUse, id)
}

func ErrIDMismatchFor(manifestID, dirName string) *TaxonomyError {
	return NewTaxonomyError("id_mismatch", "manifest id "+manifestID+" does not match directory "+dirName, ErrIDMismatch, manifestID, dirName)
}
