package api

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"time"

	"github.com/gecanews/newswatch/app/cfg"
	"github.com/gecanews/newswatch/app/database"
)

// Generator renders the current news snapshot as an RSS 2.0 document, so
// readers can follow the site without subscribing by email.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Run(items []database.NewsItem) string {
	c := cfg.Get()

	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", "GECA News Updates", 4)
	g.writeElement(&buf, "link", c.SourceURL, 4)
	g.writeElement(&buf, "description", fmt.Sprintf("Latest notices and announcements from %s", c.SourceURL), 4)

	var selfLink string
	if c.BaseUrl != "" {
		selfLink = fmt.Sprintf("%s/feed.xml", c.BaseUrl)
	} else {
		selfLink = fmt.Sprintf("http://localhost:%s/feed.xml", c.Port)
	}
	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(selfLink)))

	lastBuildDate := time.Now().In(time.Local)
	if len(items) > 0 {
		lastBuildDate = items[0].FirstSeenAt
	}
	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("NewsWatch/%s", c.Version), 4)

	for _, item := range items {
		g.writeItem(&buf, item)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String()
}

func (g *Generator) writeItem(buf *bytes.Buffer, item database.NewsItem) {
	buf.WriteString("    <item>\n")

	buf.WriteString("      <guid isPermaLink=\"true\">")
	xml.EscapeText(buf, []byte(item.Link))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", item.Title, 6)
	g.writeElement(buf, "link", item.Link, 6)
	g.writeElement(buf, "pubDate", item.FirstSeenAt.Format(time.RFC1123Z), 6)

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}
