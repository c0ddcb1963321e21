package types

import "time"

type RequestStatus string

const (
	StatusAwaitInformation RequestStatus = "await_information"
	StatusInProgress       RequestStatus = "in_progress"
	StatusToValidate       RequestStatus = "to_validate"
	StatusAskChange        RequestStatus = "ask_change"
	StatusDone             RequestStatus = "done"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case StatusAwaitInformation, StatusInProgress, StatusToValidate, StatusAskChange, StatusDone:
		return true
	}
	return false
}

type PatientGender string

const (
	GenderMale   PatientGender = "male"
	GenderFemale PatientGender = "female"
	GenderOther  PatientGender = "other"
)

type TreatmentType string

const (
	TreatmentExpansion  TreatmentType = "expansion"
	TreatmentExtraction TreatmentType = "extraction"
	TreatmentCI1        TreatmentType = "CI 1"
	TreatmentCI2        TreatmentType = "CI 2"
	TreatmentCI3        TreatmentType = "CI 3"
)

// Request is a patient treatment case moving through the production lifecycle.
type Request struct {
	ID            string         `db:"id" json:"id"`
	UserID        string         `db:"user_id" json:"userId"`
	PatientName   string         `db:"patient_name" json:"patientName"`
	PatientAge    int            `db:"patient_age" json:"patientAge"`
	PatientGender PatientGender  `db:"patient_gender" json:"patientGender"`
	TreatmentType *TreatmentType `db:"treatment_type" json:"treatmentType"`
	Status        RequestStatus  `db:"status" json:"status"`
	Notes         *string        `db:"notes" json:"notes"`
	TermsAccepted bool           `db:"terms_accepted" json:"termsAccepted"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updatedAt"`
}

// RequestWithOwner is the admin listing projection: a request joined with
// the submitting account's display name and email. Not persisted.
type RequestWithOwner struct {
	Request
	UserName  string `db:"user_name" json:"userName"`
	UserEmail string `db:"user_email" json:"userEmail"`
}

type FileType string

const (
	FileTypeRadiography FileType = "radiography"
	FileTypePhotos      FileType = "photos"
	FileTypeScan        FileType = "scan"
	FileTypeSTL         FileType = "stl"
	FileTypeFinal       FileType = "final"
)

// IntakeFileType maps a multipart field name prefix (radiography_0,
// photos_2, scan_1, ...) to its file type. Unrecognized prefixes return
// false and the file is skipped, not treated as an error.
func IntakeFileType(fieldName string) (FileType, bool) {
	for i := 0; i < len(fieldName); i++ {
		if fieldName[i] == '_' {
			fieldName = fieldName[:i]
			break
		}
	}
	switch FileType(fieldName) {
	case FileTypeRadiography, FileTypePhotos, FileTypeScan:
		return FileType(fieldName), true
	}
	return "", false
}

type RequestFile struct {
	ID        string    `db:"id" json:"id"`
	RequestID string    `db:"request_id" json:"requestId"`
	FileName  string    `db:"file_name" json:"fileName"`
	FilePath  string    `db:"file_path" json:"filePath"`
	FileType  FileType  `db:"file_type" json:"fileType"`
	FileSize  int64     `db:"file_size" json:"fileSize"`
	MimeType  string    `db:"mime_type" json:"mimeType"`
	URL       string    `db:"url" json:"url"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

type CreateRequestInput struct {
	PatientName   string         `json:"patientName" validate:"required,min=2,max=100"`
	PatientAge    int            `json:"patientAge" validate:"min=0,max=120"`
	PatientGender PatientGender  `json:"patientGender" validate:"required,oneof=male female other"`
	TreatmentType *TreatmentType `json:"treatmentType" validate:"omitempty,oneof=expansion extraction 'CI 1' 'CI 2' 'CI 3'"`
	Notes         *string        `json:"notes"`
	TermsAccepted bool           `json:"termsAccepted"`
}

// UpdateRequestInput carries a partial update; nil fields are left untouched.
type UpdateRequestInput struct {
	PatientName   *string        `json:"patientName" validate:"omitempty,min=2,max=100"`
	PatientAge    *int           `json:"patientAge" validate:"omitempty,min=0,max=120"`
	PatientGender *PatientGender `json:"patientGender" validate:"omitempty,oneof=male female other"`
	TreatmentType *TreatmentType `json:"treatmentType" validate:"omitempty,oneof=expansion extraction 'CI 1' 'CI 2' 'CI 3'"`
	Notes         *string        `json:"notes"`
	TermsAccepted *bool          `json:"termsAccepted"`
}

type UpdateStatusInput struct {
	Status RequestStatus `json:"status" validate:"required,oneof=await_information in_progress to_validate ask_change done"`
}

type FeedbackInput struct {
	Feedback string `json:"feedback" validate:"required,min=5"`
	Approved *bool  `json:"approved" validate:"required"`
}

// RequestListParams are the query parameters accepted by the listing
// endpoint. UserID is honored for admins only.
type RequestListParams struct {
	PatientName string `form:"patientName"`
	Status      string `form:"status"`
	UserID      string `form:"userId"`
	SortBy      string `form:"sortBy"`
	SortOrder   string `form:"sortOrder"`
}
