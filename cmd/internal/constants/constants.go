package constants

const (
	// StreamDatabase holds published stream and virtual server definitions
	StreamDatabase = "gestream"
	// SnippetDatabase holds the end snippet profiles of the server
	SnippetDatabase = "geendsnippet"
	// SearchDatabase holds the search tab and search service definitions
	SearchDatabase = "gesearch"
	// PoiDatabase holds the point-of-interest search data
	PoiDatabase = "gepoi"

	// DefaultObjectsToKeep are the default number of dump archives to keep at the backup provider
	DefaultObjectsToKeep = 20

	// DefaultDataDir is where the postgres cluster of the server stores its data
	DefaultDataDir = "/var/opt/google/pgsql/data"
	// DefaultSchemaDir contains one schema sql file per application database
	DefaultSchemaDir = "/opt/google/share/pgsql/schemas"

	// StagingBaseDir is the working directory of this tool
	StagingBaseDir = "/tmp/gepgdb"

	// DumpDir is the directory where the database dumps to be archived live in
	DumpDir = StagingBaseDir + "/backup/files"
	// UploadDir is the path where the dump files are archived in and uploaded to the backup provider
	UploadDir = StagingBaseDir + "/backup"
	// RestoreDir is the directory where a dump archive will be unarchived to
	RestoreDir = StagingBaseDir + "/restore/files"
	// DownloadDir is the path where a dump archive will be downloaded to before it is being unarchived to the restore dir
	DownloadDir = StagingBaseDir + "/restore"
)

// Databases are the application databases managed by this tool in the order
// in which they are reset, dumped and restored.
var Databases = []string{StreamDatabase, SnippetDatabase, SearchDatabase, PoiDatabase}
