// Package models holds the relational records consumed by the archive
// pipeline: projects, people, drives and offboarding submissions. The CRUD
// layer owns their lifecycle; the pipeline only reads them.
package models

import (
	dErrors "github.com/UoA-eResearch/driveoff/pkg/domainerrors"
)

// DataClassification labels defined in the Research Data Management Policy.
type DataClassification string

const (
	ClassificationPublic     DataClassification = "Public"
	ClassificationInternal   DataClassification = "Internal"
	ClassificationSensitive  DataClassification = "Sensitive"
	ClassificationRestricted DataClassification = "Restricted"
)

// ParseDataClassification validates a classification label from user input.
func ParseDataClassification(s string) (DataClassification, error) {
	switch DataClassification(s) {
	case ClassificationPublic, ClassificationInternal, ClassificationSensitive, ClassificationRestricted:
		return DataClassification(s), nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "unrecognized data classification label: "+s)
}
