package report

import (
	"fmt"
	"html/template"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/exameye/proctor/models"
)

var summaryTmpl = template.Must(template.New("summary").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Exam Proctoring Report</title>
<style>
body { font-family: Arial, sans-serif; margin: 40px; }
h1 { color: #333; border-bottom: 2px solid #333; padding-bottom: 10px; }
h2 { color: #666; margin-top: 30px; }
table { border-collapse: collapse; width: 100%; margin: 20px 0; }
th, td { border: 1px solid #ddd; padding: 12px; text-align: left; }
th { background-color: #4CAF50; color: white; }
tr:nth-child(even) { background-color: #f2f2f2; }
.stat-box { display: inline-block; margin: 10px; padding: 20px; border: 2px solid #4CAF50; border-radius: 5px; min-width: 150px; }
.stat-number { font-size: 36px; font-weight: bold; color: #4CAF50; }
.stat-label { color: #666; font-size: 14px; }
</style>
</head>
<body>
<h1>Exam Proctoring Summary Report</h1>
<p><strong>Generated:</strong> {{.Generated}}</p>

<h2>Overall Statistics</h2>
<div class="stat-box"><div class="stat-number">{{.TotalStudents}}</div><div class="stat-label">Total Students</div></div>
<div class="stat-box"><div class="stat-number">{{.TotalSessions}}</div><div class="stat-label">Total Sessions</div></div>
<div class="stat-box"><div class="stat-number">{{.TotalViolations}}</div><div class="stat-label">Total Violations</div></div>

<h2>Violation Breakdown</h2>
<table>
<tr><th>Violation Type</th><th>Count</th></tr>
{{range .Breakdown}}<tr><td>{{.Label}}</td><td>{{.Count}}</td></tr>
{{end}}</table>

<h2>Student-wise Summary</h2>
<table>
<tr><th>Student ID</th><th>Student Name</th><th>Total Violations</th></tr>
{{range .Students}}<tr><td>{{.StudentID}}</td><td>{{.StudentName}}</td><td>{{.Count}}</td></tr>
{{end}}</table>
</body>
</html>
`))

var studentTmpl = template.Must(template.New("student").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Student Violation Report - {{.StudentName}}</title>
<style>
body { font-family: Arial, sans-serif; margin: 40px; }
.header { text-align: center; border-bottom: 3px solid #333; padding-bottom: 20px; margin-bottom: 30px; }
h1 { color: #333; margin-bottom: 10px; }
.stat-row { display: flex; justify-content: space-around; margin: 20px 0; }
.stat-box { text-align: center; padding: 15px; }
.stat-number { font-size: 36px; font-weight: bold; color: #e74c3c; }
.stat-label { color: #666; font-size: 14px; margin-top: 5px; }
h2 { color: #666; margin-top: 30px; border-bottom: 2px solid #ddd; padding-bottom: 10px; }
table { border-collapse: collapse; width: 100%; margin: 20px 0; }
th, td { border: 1px solid #ddd; padding: 12px; text-align: left; }
th { background-color: #e74c3c; color: white; }
tr:nth-child(even) { background-color: #f9f9f9; }
.violation-image { max-width: 300px; max-height: 200px; border: 2px solid #e74c3c; border-radius: 5px; margin: 10px 0; }
.violation-card { border: 1px solid #ddd; padding: 15px; margin: 15px 0; border-radius: 5px; }
.violation-card:nth-child(even) { background-color: #f9f9f9; }
.violation-header { font-weight: bold; color: #e74c3c; margin-bottom: 10px; }
.timestamp { color: #666; font-size: 12px; }
</style>
</head>
<body>
<div class="header">
<h1>Student Violation Report</h1>
<p><strong>Student ID:</strong> {{.StudentID}}</p>
<p><strong>Student Name:</strong> {{.StudentName}}</p>
<p><strong>Generated:</strong> {{.Generated}}</p>
</div>

<div class="stat-row">
<div class="stat-box"><div class="stat-number">{{.TotalViolations}}</div><div class="stat-label">Total Violations</div></div>
<div class="stat-box"><div class="stat-number">{{.TypeCount}}</div><div class="stat-label">Violation Types</div></div>
<div class="stat-box"><div class="stat-number">{{.EvidenceCount}}</div><div class="stat-label">Evidence Photos</div></div>
</div>

<h2>Violation Breakdown</h2>
<table>
<tr><th>Violation Type</th><th>Count</th>{{if .ShowPercent}}<th>Percentage</th>{{end}}</tr>
{{range .Breakdown}}<tr><td>{{.Label}}</td><td>{{.Count}}</td>{{if $.ShowPercent}}<td>{{.Percent}}%</td>{{end}}</tr>
{{end}}</table>

<h2>Detailed Violations with Evidence</h2>
{{range .Violations}}<div class="violation-card">
<div class="violation-header">Violation #{{.Index}}: {{.Label}}</div>
<p><strong>Severity:</strong> {{.Severity}}</p>
<p><strong>Message:</strong> {{.Message}}</p>
<p class="timestamp"><strong>Timestamp:</strong> {{.Timestamp}}</p>
{{if .Snapshot}}<img src="{{.Snapshot}}" class="violation-image" alt="Violation Evidence">{{end}}
</div>
{{end}}</body>
</html>
`))

type breakdownRow struct {
	Label   string
	Count   int
	Percent string
}

type summaryData struct {
	Generated       string
	TotalStudents   int
	TotalSessions   int
	TotalViolations int
	Breakdown       []breakdownRow
	Students        []StudentCount
}

type violationRow struct {
	Index     int
	Label     string
	Severity  string
	Message   string
	Timestamp string
	Snapshot  template.URL
}

type studentData struct {
	Generated       string
	StudentID       string
	StudentName     string
	TotalViolations int
	TypeCount       int
	EvidenceCount   int
	ShowPercent     bool
	Breakdown       []breakdownRow
	Violations      []violationRow
}

// SummaryHTML renders the system-wide report.
func SummaryHTML(sessions []models.ExamSession, violations []models.Violation, students []models.Student) (string, error) {
	data := summaryData{
		Generated:       time.Now().UTC().Format("2006-01-02 15:04:05 UTC"),
		TotalStudents:   len(students),
		TotalSessions:   len(sessions),
		TotalViolations: len(violations),
		Students:        RankStudents(violations),
	}
	for _, share := range TypeBreakdown(violations) {
		data.Breakdown = append(data.Breakdown, breakdownRow{
			Label: prettyType(share.Type),
			Count: share.Count,
		})
	}

	var buf strings.Builder
	if err := summaryTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// StudentHTML renders one student's report with evidence images.
func StudentHTML(studentID, studentName string, violations []models.Violation) (string, error) {
	breakdown := TypeBreakdown(violations)

	data := studentData{
		Generated:       time.Now().UTC().Format("2006-01-02 15:04:05 UTC"),
		StudentID:       studentID,
		StudentName:     studentName,
		TotalViolations: len(violations),
		TypeCount:       len(breakdown),
		ShowPercent:     len(violations) > 0,
	}
	for _, share := range breakdown {
		data.Breakdown = append(data.Breakdown, breakdownRow{
			Label:   prettyType(share.Type),
			Count:   share.Count,
			Percent: fmt.Sprintf("%.1f", share.Percent),
		})
	}
	for i, v := range violations {
		row := violationRow{
			Index:     i + 1,
			Label:     prettyType(v.ViolationType),
			Severity:  strings.ToUpper(v.Severity),
			Message:   v.Message,
			Timestamp: v.Timestamp.UTC().Format("2006-01-02 15:04:05"),
		}
		if ref := v.SnapshotRef(); ref != "" {
			if v.SnapshotURL == "" && !strings.HasPrefix(ref, "data:") {
				ref = "data:image/jpeg;base64," + ref
			}
			row.Snapshot = template.URL(ref)
			data.EvidenceCount++
		}
		data.Violations = append(data.Violations, row)
	}

	var buf strings.Builder
	if err := studentTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// prettyType turns "looking_away" into "Looking Away" for display.
func prettyType(t string) string {
	if t == "" {
		t = unknownType
	}
	words := strings.Split(strings.ReplaceAll(t, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(w)
		words[i] = strings.ToUpper(string(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
