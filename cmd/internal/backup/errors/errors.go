package errors

// NoBackupsAvailableError indicates that no dump archives exist at the backup provider
type NoBackupsAvailableError struct{}

func (e NoBackupsAvailableError) Error() string {
	return "no backups available"
}
