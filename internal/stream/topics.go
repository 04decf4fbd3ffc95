package stream

// FilesTopic names the change-feed topic for a project's file table.
func FilesTopic(projectID string) string {
	return "files:" + projectID
}

// PresenceTopic names the presence watch topic for a project.
func PresenceTopic(projectID string) string {
	return "presence:" + projectID
}
