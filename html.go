/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
)

type menuEntry struct {
	Title       string
	Description string
	Path        string
}

// menu lists every game on the landing page. Entries without a path are
// not served by this build.
var menu = []menuEntry{
	{Title: "Emoji Wanted!", Description: "Find and click the wanted emoji before time runs out.", Path: "/wanted"},
	{Title: "Emoji Guess", Description: "Name the thing a row of emoji describes."},
	{Title: "Emoji Memory", Description: "Flip cards two at a time and match every pair."},
	{Title: "Emoji Sort", Description: "Drag each emoji into the right category."},
}

var homeTemplate = template.Must(template.ParseFS(assets, "assets/index.html"))

type homePage struct {
	Favicon template.HTML
	Prefix  string
	Version string
	Games   []menuEntry
}

func serveHomePage(cfg *Config, errs chan<- error) httprouter.Handle {
	var page bytes.Buffer
	err := homeTemplate.Execute(&page, homePage{
		Favicon: template.HTML(getFavicon(cfg)),
		Prefix:  cfg.prefix,
		Version: releaseVersion,
		Games:   menu,
	})
	if err != nil {
		panic(err)
	}
	data := page.Bytes()

	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		_, err := w.Write(data)
		if err != nil {
			errs <- err

			return
		}
	}
}

func serveHealthCheck(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)

		_, err := w.Write([]byte("Ok\n"))
		if err != nil {
			errs <- err

			return
		}
	}
}

func serveRobots(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		data := `User-agent: Amazonbot
Disallow: /

User-agent: Applebot-Extended
Disallow: /

User-agent: Bytespider
Disallow: /

User-agent: CCBot
Disallow: /

User-agent: ClaudeBot
Disallow: /

User-agent: Google-Extended
Disallow: /

User-agent: GPTBot
Disallow: /

User-agent: meta-externalagent
Disallow: /`

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		_, err := w.Write([]byte(data))
		if err != nil {
			errs <- err

			return
		}
	}
}

func registerHome(cfg *Config, path string, mux *httprouter.Router, errs chan<- error) {
	mux.GET(path, serveHomePage(cfg, errs))
}
