package report

import "errors"

var (
	ErrReportNotFound = errors.New("report not found")
	ErrDoctorNotFound = errors.New("doctor not found")
)
