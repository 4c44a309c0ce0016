package storage

import (
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"docvault/internal/errs"
)

// KeyPrefix is the root of every document key.
const KeyPrefix = "documents"

const keyDateLayout = "2006-01-02"

// Rejection reasons attached to request validation errors, alongside the validator's own.
const (
	ReasonMissingFileName  = "missing_file_name"
	ReasonInvalidPatientID = "invalid_patient_id"
)

var (
	extPattern       = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)
	patientIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)
)

// NewFileID mints a random, unguessable file identifier.
func NewFileID() string { return uuid.NewString() }

// BuildKey derives documents/{patientID}/{YYYY-MM-DD}/{fileID}{ext}. The date is taken in UTC and the
// extension comes from fileName, lowercased, and is dropped if it is not a plain alphanumeric suffix.
func BuildKey(patientID string, at time.Time, fileID, fileName string) (string, error) {
	if err := ValidatePatientID(patientID); err != nil {
		return "", err
	}
	if _, err := uuid.Parse(fileID); err != nil {
		return "", errs.Validation("file id %q is not a uuid", fileID)
	}
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(fileName, "\\", "/")))
	if !extPattern.MatchString(ext) {
		ext = ""
	}
	return path.Join(KeyPrefix, patientID, at.UTC().Format(keyDateLayout), fileID+ext), nil
}

// ValidatePatientID rejects ids that could not be used as a single key segment.
func ValidatePatientID(patientID string) error {
	if !patientIDPattern.MatchString(patientID) {
		return errs.Validation("patient id %q is not a valid key segment", patientID).
			WithDetail("reason", ReasonInvalidPatientID)
	}
	return nil
}

// KeyParts are the components of a document key.
type KeyParts struct {
	PatientID string
	Date      time.Time
	FileID    string
	Ext       string
}

// ParseKey validates key against the document key format and returns its parts.
func ParseKey(key string) (KeyParts, error) {
	segs := strings.Split(key, "/")
	if len(segs) != 4 || segs[0] != KeyPrefix {
		return KeyParts{}, errs.Validation("storage key %q does not match %s/{patient}/{date}/{file}", key, KeyPrefix)
	}
	if err := ValidatePatientID(segs[1]); err != nil {
		return KeyParts{}, err
	}
	date, err := time.Parse(keyDateLayout, segs[2])
	if err != nil {
		return KeyParts{}, errs.Validation("storage key %q has an invalid date segment", key)
	}
	name := segs[3]
	ext := path.Ext(name)
	if ext != "" && !extPattern.MatchString(ext) {
		return KeyParts{}, errs.Validation("storage key %q has an invalid extension", key)
	}
	fileID := strings.TrimSuffix(name, ext)
	if _, err := uuid.Parse(fileID); err != nil {
		return KeyParts{}, errs.Validation("storage key %q has an invalid file id", key)
	}
	return KeyParts{PatientID: segs[1], Date: date, FileID: fileID, Ext: ext}, nil
}
