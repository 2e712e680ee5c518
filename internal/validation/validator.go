// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

// Package validation wraps a singleton go-playground/validator instance with
// the custom rules Nextbackup settings need.
//
//	type SaveSettingsRequest struct {
//	    FileBackupFolder string `json:"file_backup_folder" validate:"required,abspath"`
//	    BackupInterval   int    `json:"backup_interval" validate:"gt=0,lte=8760"`
//	}
//
//	if err := validation.ValidateStruct(&req); err != nil {
//	    // err.Error() == "FileBackupFolder must be an absolute path"
//	}
package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// filePrefixPattern restricts dump file prefixes to characters that are safe
// in file names on every supported platform.
var filePrefixPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// FieldError describes a single failed rule.
type FieldError struct {
	Field   string
	Tag     string
	Param   string
	Message string
}

// Error implements error.
func (e FieldError) Error() string {
	return e.Message
}

// RequestValidationError collects every failed rule of one struct.
type RequestValidationError struct {
	Fields []FieldError
}

// Error joins the individual messages.
func (ve *RequestValidationError) Error() string {
	if len(ve.Fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(ve.Fields))
	for i, f := range ve.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

// GetValidator returns the shared validator, registering custom rules on first use.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// abspath: non-empty absolute filesystem path
		_ = validate.RegisterValidation("abspath", func(fl validator.FieldLevel) bool { //nolint:errcheck // static registration
			p := fl.Field().String()
			return p != "" && filepath.IsAbs(p)
		})
		// fileprefix: safe file name prefix for dump files
		_ = validate.RegisterValidation("fileprefix", func(fl validator.FieldLevel) bool { //nolint:errcheck // static registration
			return filePrefixPattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// ValidateStruct validates s. It returns nil on success.
func ValidateStruct(s interface{}) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &RequestValidationError{Fields: []FieldError{{Field: "unknown", Tag: "unknown", Message: err.Error()}}}
	}

	out := make([]FieldError, len(fieldErrs))
	for i, fe := range fieldErrs {
		out[i] = FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: translate(fe),
		}
	}
	return &RequestValidationError{Fields: out}
}

var messages = map[string]string{
	"required":   "%s is required",
	"abspath":    "%s must be an absolute path",
	"fileprefix": "%s may only contain letters, digits, dot, dash and underscore",
}

var messagesWithParam = map[string]string{
	"gt":    "%s must be greater than %s",
	"gte":   "%s must be greater than or equal to %s",
	"lt":    "%s must be less than %s",
	"lte":   "%s must be less than or equal to %s",
	"min":   "%s must be at least %s",
	"max":   "%s must be at most %s",
	"oneof": "%s must be one of: %s",
}

func translate(fe validator.FieldError) string {
	if tmpl, ok := messages[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, fe.Field())
	}
	if tmpl, ok := messagesWithParam[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
}
