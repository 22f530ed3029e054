// Package testutil provides shared test fixtures: a miniature music-store
// database and a test logger.
package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	// sqlite driver for building test fixtures.
	_ "modernc.org/sqlite"
)

// CreateSampleDB writes a small music-store database to a temp file and
// returns its path. The shape mirrors the Chinook sample: artists, albums,
// tracks, customers, and invoices across enough countries to make
// "top 5 by revenue" style questions meaningful.
func CreateSampleDB(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sample.sqlite")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("failed to create sample database: %v", err)
	}
	defer func() { _ = db.Close() }()

	ctx := context.Background()

	schema := `
		CREATE TABLE Artist (
			ArtistId INTEGER PRIMARY KEY,
			Name NVARCHAR(120)
		);

		CREATE TABLE Album (
			AlbumId INTEGER PRIMARY KEY,
			Title NVARCHAR(160) NOT NULL,
			ArtistId INTEGER NOT NULL REFERENCES Artist(ArtistId)
		);

		CREATE TABLE Track (
			TrackId INTEGER PRIMARY KEY,
			Name NVARCHAR(200) NOT NULL,
			AlbumId INTEGER REFERENCES Album(AlbumId),
			Milliseconds INTEGER NOT NULL,
			UnitPrice NUMERIC(10,2) NOT NULL
		);

		CREATE TABLE Customer (
			CustomerId INTEGER PRIMARY KEY,
			FirstName NVARCHAR(40) NOT NULL,
			LastName NVARCHAR(20) NOT NULL,
			Country NVARCHAR(40)
		);

		CREATE TABLE Invoice (
			InvoiceId INTEGER PRIMARY KEY,
			CustomerId INTEGER NOT NULL REFERENCES Customer(CustomerId),
			BillingCountry NVARCHAR(40),
			Total NUMERIC(10,2) NOT NULL
		);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		t.Fatalf("failed to create sample schema: %v", err)
	}

	data := `
		INSERT INTO Artist (ArtistId, Name) VALUES
		(1, 'AC/DC'), (2, 'Accept'), (3, 'Aerosmith');

		INSERT INTO Album (AlbumId, Title, ArtistId) VALUES
		(1, 'For Those About To Rock We Salute You', 1),
		(2, 'Balls to the Wall', 2),
		(3, 'Big Ones', 3);

		INSERT INTO Track (TrackId, Name, AlbumId, Milliseconds, UnitPrice) VALUES
		(1, 'For Those About To Rock (We Salute You)', 1, 343719, 0.99),
		(2, 'Balls to the Wall', 2, 342562, 0.99),
		(3, 'Fast As a Shark', 2, 230619, 0.99),
		(4, 'Walk On Water', 3, 295680, 0.99);

		INSERT INTO Customer (CustomerId, FirstName, LastName, Country) VALUES
		(1, 'Luis', 'Goncalves', 'Brazil'),
		(2, 'Leonie', 'Koehler', 'Germany'),
		(3, 'Francois', 'Tremblay', 'Canada'),
		(4, 'Bjorn', 'Hansen', 'Norway'),
		(5, 'Helena', 'Holy', 'Czech Republic'),
		(6, 'Jack', 'Smith', 'USA');

		INSERT INTO Invoice (InvoiceId, CustomerId, BillingCountry, Total) VALUES
		(1, 1, 'Brazil', 3.98),
		(2, 2, 'Germany', 5.94),
		(3, 3, 'Canada', 8.91),
		(4, 4, 'Norway', 13.86),
		(5, 5, 'Czech Republic', 0.99),
		(6, 6, 'USA', 1.98),
		(7, 1, 'Brazil', 5.94),
		(8, 6, 'USA', 8.91);
	`
	if _, err := db.ExecContext(ctx, data); err != nil {
		t.Fatalf("failed to seed sample data: %v", err)
	}

	return path
}
