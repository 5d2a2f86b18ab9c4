package models

// SubjectAverage is the class mean for one subject.
type SubjectAverage struct {
	Subject string  `json:"subject"`
	Average float64 `json:"average"`
}

// StudentAverage lists a student together with their rounded mean grade.
type StudentAverage struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Average float64 `json:"average"`
}

// AttendanceAlert flags a student below the attendance threshold.
type AttendanceAlert struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Attendance float64 `json:"attendance"`
}

// StudentReportRow is a student entry of the composite report.
type StudentReportRow struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Grades     []float64 `json:"grades"`
	Attendance float64   `json:"attendance"`
	Average    float64   `json:"average"`
}

// ClassReport bundles every aggregate computed over one student snapshot.
type ClassReport struct {
	TotalStudents           int                `json:"total_students"`
	Students                []StudentReportRow `json:"students"`
	ClassAverage            float64            `json:"class_average"`
	SubjectAverages         []SubjectAverage   `json:"subject_averages"`
	StudentsAboveAverage    []StudentAverage   `json:"students_above_average"`
	StudentsBelowAttendance []AttendanceAlert  `json:"students_below_attendance"`
	AttendanceThreshold     float64            `json:"attendance_threshold"`
}

// ReportFormat identifies an export encoding.
type ReportFormat string

const (
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatPDF  ReportFormat = "pdf"
	ReportFormatXLSX ReportFormat = "xlsx"
)
