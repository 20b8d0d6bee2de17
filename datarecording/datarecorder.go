// Package datarecording persists simulation results into a SQLite
// database: one row per DataBag counter in the metrics table, one row per
// completed task in the trace table. Rows are buffered in memory and
// flushed in batched transactions.
package datarecording

import (
	"database/sql"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// DataRecorder is a backend that can record and store simulation output.
// Both the run-metrics flush and the task tracer write through it.
type DataRecorder interface {
	// CreateTable creates a new table shaped after the sample row. Only
	// flat structs of scalar fields are recordable; each field becomes a
	// typed column.
	CreateTable(tableName string, sampleRow any)

	// InsertData buffers a same-shape row for a table that already exists.
	InsertData(tableName string, row any)

	// ListTables returns the table names in creation order.
	ListTables() []string

	// Flush writes all the buffered rows into the database in one
	// transaction.
	Flush()

	// Close flushes and closes the database.
	Close()
}

// New creates a DataRecorder backed by a SQLite file at the given path. An
// empty path picks a generated file name.
func New(path string) DataRecorder {
	w := &sqliteWriter{
		path:      path,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}

	w.open()

	atexit.Register(func() { w.Flush() })

	return w
}

// NewWithDB creates a DataRecorder recording into a given database.
func NewWithDB(db *sql.DB) DataRecorder {
	w := &sqliteWriter{
		db:        db,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}

	atexit.Register(func() { w.Flush() })

	return w
}

// A table buffers rows of one shape together with the SQL prepared for it.
type table struct {
	name      string
	rowType   reflect.Type
	insertSQL string
	rows      []any
}

// sqliteWriter is the writer that writes rows into a SQLite database.
type sqliteWriter struct {
	db   *sql.DB
	path string

	tables     map[string]*table
	tableOrder []string
	batchSize  int
	pending    int
}

// open establishes a connection to the database, refusing to overwrite an
// existing recording.
func (w *sqliteWriter) open() {
	if w.path == "" {
		w.path = "chainsim_data_recording_" + xid.New().String()
	}

	filename := w.path + ".sqlite3"

	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	fmt.Fprintf(os.Stderr, "Database created for recording: %s\n", filename)

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	w.db = db
}

// sqlColumnType maps a row field to the SQLite column type it is stored
// as. Virtual times and counters are integers; rates are reals.
func sqlColumnType(kind reflect.Kind) (string, bool) {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16,
		reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16,
		reflect.Uint32, reflect.Uint64:
		return "INTEGER", true
	case reflect.Float32, reflect.Float64:
		return "REAL", true
	case reflect.String:
		return "TEXT", true
	default:
		return "", false
	}
}

// CreateTable creates a new table shaped after the sample row.
func (w *sqliteWriter) CreateTable(tableName string, sampleRow any) {
	rowType := reflect.TypeOf(sampleRow)
	names := structs.Names(sampleRow)

	columns := make([]string, 0, rowType.NumField())
	placeholders := make([]string, 0, rowType.NumField())
	for i := 0; i < rowType.NumField(); i++ {
		columnType, ok := sqlColumnType(rowType.Field(i).Type.Kind())
		if !ok {
			panic(fmt.Errorf(
				"field %s of table %s is not a scalar",
				names[i], tableName))
		}

		columns = append(columns, names[i]+" "+columnType)
		placeholders = append(placeholders, "?")
	}

	w.mustExecute("CREATE TABLE " + tableName +
		" (\n\t" + strings.Join(columns, ",\n\t") + "\n);")

	w.tables[tableName] = &table{
		name:    tableName,
		rowType: rowType,
		insertSQL: "INSERT INTO " + tableName +
			" (" + strings.Join(names, ", ") + ")" +
			" VALUES (" + strings.Join(placeholders, ", ") + ")",
	}
	w.tableOrder = append(w.tableOrder, tableName)
}

// InsertData buffers a row for the named table.
func (w *sqliteWriter) InsertData(tableName string, row any) {
	t, exists := w.tables[tableName]
	if !exists {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	if reflect.TypeOf(row) != t.rowType {
		panic(fmt.Sprintf(
			"row of type %T does not match table %s", row, tableName))
	}

	t.rows = append(t.rows, row)

	w.pending++
	if w.pending >= w.batchSize {
		w.Flush()
	}
}

// ListTables returns the table names in creation order.
func (w *sqliteWriter) ListTables() []string {
	names := make([]string, len(w.tableOrder))
	copy(names, w.tableOrder)

	return names
}

// Flush writes all the buffered rows into the database in one transaction.
func (w *sqliteWriter) Flush() {
	if w.pending == 0 {
		return
	}

	tx, err := w.db.Begin()
	if err != nil {
		panic(fmt.Errorf("starting recording transaction: %w", err))
	}

	for _, name := range w.tableOrder {
		if err := w.flushTable(tx, w.tables[name]); err != nil {
			_ = tx.Rollback()
			panic(err)
		}
	}

	if err := tx.Commit(); err != nil {
		panic(fmt.Errorf("committing recording transaction: %w", err))
	}

	w.pending = 0
}

func (w *sqliteWriter) flushTable(tx *sql.Tx, t *table) error {
	if len(t.rows) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(t.insertSQL)
	if err != nil {
		return fmt.Errorf("preparing insert for %s: %w", t.name, err)
	}
	defer stmt.Close()

	for _, row := range t.rows {
		value := reflect.ValueOf(row)

		fields := make([]any, 0, value.NumField())
		for i := 0; i < value.NumField(); i++ {
			fields = append(fields, value.Field(i).Interface())
		}

		if _, err := stmt.Exec(fields...); err != nil {
			return fmt.Errorf("inserting into %s: %w", t.name, err)
		}
	}

	t.rows = nil

	return nil
}

// Close flushes and closes the database.
func (w *sqliteWriter) Close() {
	w.Flush()

	if err := w.db.Close(); err != nil {
		panic(err)
	}
}

func (w *sqliteWriter) mustExecute(query string) {
	if _, err := w.db.Exec(query); err != nil {
		panic(fmt.Errorf("executing %q: %w", query, err))
	}
}
