package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/gaurav5327/Edu-Sync-sub000/internal/dto"
	"github.com/gaurav5327/Edu-Sync-sub000/internal/models"
)

func newTable(header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	return table
}

// renderTimetable prints the weekly grid with slots as rows and days as columns.
func renderTimetable(tt models.Timetable) {
	color.Cyan("\n%d %s-%s  version %d  (%s)", tt.Year, tt.Branch, tt.Division, tt.Version, tt.ID)

	cells := make(map[models.Day]map[string][]string, len(models.Days))
	for _, day := range models.Days {
		cells[day] = make(map[string][]string)
	}
	for _, entry := range tt.Entries {
		if !entry.Occupied() || cells[entry.Day] == nil {
			continue
		}
		label := entry.Course.Code
		if entry.Room != nil {
			label += " @ " + entry.Room.Name
		}
		if entry.IsLab() {
			label += " (lab)"
		}
		cells[entry.Day][entry.StartTime] = append(cells[entry.Day][entry.StartTime], label)
	}

	header := []string{"Time"}
	for _, day := range models.Days {
		header = append(header, string(day))
	}
	table := newTable(header...)
	table.SetRowLine(true)
	for _, slot := range models.TimeSlots {
		row := []string{slot}
		for _, day := range models.Days {
			switch {
			case slot == models.LunchSlot:
				row = append(row, "LUNCH")
			case len(cells[day][slot]) == 0:
				row = append(row, "-")
			default:
				row = append(row, strings.Join(cells[day][slot], "\n"))
			}
		}
		table.Append(row)
	}
	table.Render()
}

func renderUnscheduled(list []models.UnscheduledCourse) {
	if len(list) == 0 {
		return
	}
	color.Yellow("\n%d course(s) could not be scheduled", len(list))
	table := newTable("Course", "Name", "Instructor", "Reason")
	for _, item := range list {
		table.Append([]string{item.Course.Code, item.Course.Name, item.Course.InstructorName, item.Reason})
	}
	table.Render()
}

func renderConflicts(conflicts []models.Conflict) {
	if len(conflicts) == 0 {
		return
	}
	color.Red("\n%d conflict(s)", len(conflicts))
	table := newTable("Type", "Day", "Time", "Courses")
	for _, c := range conflicts {
		names := make([]string, 0, len(c.Courses))
		for _, course := range c.Courses {
			names = append(names, course.Code)
		}
		table.Append([]string{string(c.Type), string(c.Day), c.StartTime, strings.Join(names, ", ")})
	}
	table.Render()
}

func renderResolutions(applied []models.AppliedResolution) {
	if len(applied) == 0 {
		return
	}
	color.Cyan("\n%d resolution(s) applied", len(applied))
	table := newTable("Conflict", "Change")
	for _, r := range applied {
		var change string
		switch c := r.Change.(type) {
		case models.RoomChange:
			change = "moved to room " + c.RoomName
		case models.TimeChange:
			change = fmt.Sprintf("moved to %s %s", c.Day, c.StartTime)
		}
		table.Append([]string{r.Conflict.Describe(), change})
	}
	table.Render()
}

func renderHistory(versions []models.TimetableVersion) {
	if len(versions) == 0 {
		color.Yellow("no stored versions")
		return
	}
	table := newTable("Version", "ID", "Created")
	for _, v := range versions {
		table.Append([]string{strconv.Itoa(v.Version), v.ID, v.CreatedAt.Format("2006-01-02 15:04:05")})
	}
	table.Render()
}

func renderScenarios(list []models.Scenario) {
	if len(list) == 0 {
		color.Yellow("no scenarios")
		return
	}
	table := newTable("ID", "Name", "Base", "Status", "Updated")
	for _, s := range list {
		base := "-"
		if s.HasBase() {
			base = *s.BaseScenarioID
		}
		table.Append([]string{s.ID, s.Name, base, string(s.Status), s.UpdatedAt.Format("2006-01-02 15:04")})
	}
	table.Render()
}

func renderScenarioResult(s models.Scenario) {
	if s.GeneratedTimetable != nil {
		renderTimetable(*s.GeneratedTimetable)
	}
	renderUnscheduled(s.Unscheduled)
	if s.Metrics == nil {
		return
	}
	table := newTable("Metric", "Value")
	table.AppendBulk(metricRows(*s.Metrics))
	table.Render()
	color.Green("scenario %s is %s", s.ID, s.Status)
}

func metricRows(m models.ScenarioMetrics) [][]string {
	return [][]string{
		{"Conflicts", strconv.Itoa(m.ConflictCount)},
		{"Room utilization %", formatFloat(m.RoomUtilization)},
		{"Faculty workload", formatFloat(m.FacultyWorkload)},
		{"Student satisfaction %", formatFloat(m.StudentSatisfaction)},
		{"Unscheduled", strconv.Itoa(m.UnscheduledCount)},
	}
}

func renderComparison(cmp dto.ScenarioComparison) {
	base := metricRows(cmp.Base)
	other := metricRows(cmp.Other)
	delta := [][]string{
		{"", signedInt(cmp.Delta.ConflictCount)},
		{"", signedFloat(cmp.Delta.RoomUtilization)},
		{"", signedFloat(cmp.Delta.FacultyWorkload)},
		{"", signedFloat(cmp.Delta.StudentSatisfaction)},
		{"", signedInt(cmp.Delta.UnscheduledCount)},
	}

	table := newTable("Metric", cmp.BaseID, cmp.OtherID, "Delta")
	for i := range base {
		table.Append([]string{base[i][0], base[i][1], other[i][1], delta[i][1]})
	}
	table.Render()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func signedFloat(v float64) string {
	if v > 0 {
		return "+" + formatFloat(v)
	}
	return formatFloat(v)
}

func signedInt(v int) string {
	if v > 0 {
		return "+" + strconv.Itoa(v)
	}
	return strconv.Itoa(v)
}
