package config

const (
	// DefaultDatabasePath is the default sqlite file for imported tables and run history
	DefaultDatabasePath = "./xmlimport.db"

	// DefaultArchiveDir is where relative XML file names are looked up
	DefaultArchiveDir = "archivados_xml"

	// DefaultItemTag is the element name of one record in exported XML files
	DefaultItemTag = "_exportar"
)

// Supported database drivers
const (
	DriverSQLite    = "sqlite"
	DriverPostgres  = "postgres"
	DriverMySQL     = "mysql"
	DriverSQLServer = "sqlserver"
)
