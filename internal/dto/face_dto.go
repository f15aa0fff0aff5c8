package dto

import "time"

// FaceEnrollRequest submits enrollment images for one student. Images are
// base64 encoded; unusable ones are skipped as long as at least one yields a
// face.
type FaceEnrollRequest struct {
	StudentID uint     `json:"student_id" validate:"required,gt=0"`
	Images    []string `json:"images" validate:"required,min=1,max=10,dive,required"`
}

// FaceEnrollResponse reports the enrollment outcome.
type FaceEnrollResponse struct {
	StudentID  uint      `json:"student_id"`
	Samples    int       `json:"samples"`
	ImageURLs  []string  `json:"image_urls,omitempty"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

// FaceMarkRequest presents a probe image for identification and marking.
type FaceMarkRequest struct {
	Image string `json:"image" validate:"required"`
}

// FaceMarkResponse pairs the resolved identity with the marking outcome.
type FaceMarkResponse struct {
	StudentID  uint               `json:"student_id"`
	Confidence float64            `json:"confidence"`
	Attendance AttendanceResponse `json:"attendance"`
}
