package backup

// selectExpired returns the records of one schedule that fall outside its retention window, oldest first.
//
// Only scheduled records of scheduleID are candidates, so manual backups and other
// schedules can never be selected. The window is the newest keep successful backups;
// older successes are expired together with failed backups older than the window.
// A negative keep means unlimited retention.
func selectExpired(records []*Record, scheduleID string, keep int) []*Record {
	if keep < 0 {
		return nil
	}

	candidates := make([]*Record, 0, len(records))
	for _, r := range records {
		if r.Scheduled() && r.ScheduleID == scheduleID {
			candidates = append(candidates, r)
		}
	}
	sortOldestFirst(candidates)

	successes := make([]*Record, 0, len(candidates))
	for _, r := range candidates {
		if r.Succeeded() {
			successes = append(successes, r)
		}
	}
	if len(successes) <= keep {
		return nil
	}

	excess := len(successes) - keep
	expired := make(map[string]struct{}, excess)
	for _, r := range successes[:excess] {
		expired[r.ID] = struct{}{}
	}

	for _, r := range candidates {
		if r.Succeeded() {
			continue
		}
		// with keep == 0 there is no window left and every failure goes
		if keep == 0 || r.Timestamp.Before(successes[excess].Timestamp) {
			expired[r.ID] = struct{}{}
		}
	}

	out := make([]*Record, 0, len(expired))
	for _, r := range candidates {
		if _, ok := expired[r.ID]; ok {
			out = append(out, r)
		}
	}
	return out
}
