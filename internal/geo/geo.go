// Package geo is the optional enrichment step that fills a scan's country and
// city from a MaxMind database. Without a database every lookup is empty.
package geo

import (
	"net"

	"github.com/oschwald/maxminddb-golang"
)

type Result struct {
	Country string
	City    string
}

type Reader struct {
	db *maxminddb.Reader
}

// Open opens a MaxMind .mmdb file. An empty path yields a no-op Reader.
func Open(path string) (*Reader, error) {
	if path == "" {
		return &Reader{}, nil
	}
	db, err := maxminddb.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{db: db}, nil
}

func (r *Reader) Enabled() bool {
	return r != nil && r.db != nil
}

func (r *Reader) Close() {
	if r.Enabled() {
		r.db.Close()
	}
}

// Lookup resolves an IP to country ISO code and English city name.
func (r *Reader) Lookup(ipStr string) Result {
	if !r.Enabled() {
		return Result{}
	}
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return Result{}
	}

	var record struct {
		Country struct {
			ISOCode string `maxminddb:"iso_code"`
		} `maxminddb:"country"`
		City struct {
			Names map[string]string `maxminddb:"names"`
		} `maxminddb:"city"`
	}
	if err := r.db.Lookup(ip, &record); err != nil {
		return Result{}
	}
	return Result{
		Country: record.Country.ISOCode,
		City:    record.City.Names["en"],
	}
}
