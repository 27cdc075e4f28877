package source

func init() {
	Register(&Dialect{
		Name:         "postgresql",
		Aliases:      []string{"postgres", "pg", "pgsql"},
		DefaultPort:  5432,
		DriverName:   "pgx",
		DriverModule: "github.com/jackc/pgx/v5",
		open:         `"`,
		close:        `"`,
	})
	Register(&Dialect{
		Name:         "mysql",
		Aliases:      []string{"mariadb"},
		DefaultPort:  3306,
		DriverName:   "mysql",
		DriverModule: "github.com/go-sql-driver/mysql",
		open:         "`",
		close:        "`",
	})
	Register(&Dialect{
		Name:         "mssql",
		Aliases:      []string{"sqlserver", "sql_server"},
		DefaultPort:  1433,
		DriverName:   "sqlserver",
		DriverModule: "github.com/microsoft/go-mssqldb",
		open:         "[",
		close:        "]",
	})
	Register(&Dialect{
		Name:         "sqlite",
		Aliases:      []string{"sqlite3"},
		DriverName:   "sqlite",
		DriverModule: "modernc.org/sqlite",
		open:         `"`,
		close:        `"`,
	})
	Register(&Dialect{
		Name:         "snowflake",
		DefaultPort:  443,
		DriverName:   "snowflake",
		DriverModule: "github.com/snowflakedb/gosnowflake",
		open:         `"`,
		close:        `"`,
	})
}
