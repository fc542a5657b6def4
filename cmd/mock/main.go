package main

import (
	"flag"
	"log"
	"net/http"
	"time"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	people := flag.Int("people", 25, "search results per keyword")
	perPage := flag.Int("per-page", 10, "results per page")
	checkpoint := flag.Bool("checkpoint", false, "send every login to a verification page")
	flag.Parse()

	site := newSite(siteOptions{People: *people, PerPage: *perPage, Checkpoint: *checkpoint})
	srv := &http.Server{
		Addr:              *addr,
		Handler:           site.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("mock site listening on %s", *addr)
	log.Fatal(srv.ListenAndServe())
}
