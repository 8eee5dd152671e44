package aggregate

// AttendanceFor returns the attendance summary for one student, if present
func (r *Result) AttendanceFor(studentID string) (AttendanceSummary, bool) {
	for _, s := range r.Attendance {
		if s.StudentID == studentID {
			return s, true
		}
	}
	return AttendanceSummary{}, false
}

// GradesFor returns the grades summary for one student, if present
func (r *Result) GradesFor(studentID string) (GradesSummary, bool) {
	for _, s := range r.Grades {
		if s.StudentID == studentID {
			return s, true
		}
	}
	return GradesSummary{}, false
}

// DisciplineFor returns the discipline summary for one student, if present
func (r *Result) DisciplineFor(studentID string) (DisciplineSummary, bool) {
	for _, s := range r.Discipline {
		if s.StudentID == studentID {
			return s, true
		}
	}
	return DisciplineSummary{}, false
}

// FlagsFor returns the triggered flags for one student
func (r *Result) FlagsFor(studentID string) []StudentFlag {
	var flags []StudentFlag
	for _, f := range r.Flags {
		if f.StudentID == studentID {
			flags = append(flags, f)
		}
	}
	return flags
}
