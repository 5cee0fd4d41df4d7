package excel

import "errors"

var (
	// ErrMissingFilePath is returned when file path is not specified
	ErrMissingFilePath = errors.New("file path is required")

	// ErrMissingSheetName is returned when sheet name is not specified
	ErrMissingSheetName = errors.New("sheet name is required")

	// ErrLocked is returned when another process holds the workbook lock
	ErrLocked = errors.New("workbook is locked by another process")
)
