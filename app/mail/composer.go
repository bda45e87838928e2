package mail

import (
	"fmt"
	"html"
	"net/url"
	"strings"
)

// DigestItem is one news entry rendered into a notification email.
type DigestItem struct {
	Title   string
	Link    string
	Excerpt string
}

// Composer builds the three message kinds the service sends: the
// verification mail, the welcome mail and the per-recipient news digest.
type Composer struct {
	from    string
	baseURL string
}

func NewComposer(from, baseURL string) *Composer {
	return &Composer{
		from:    from,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (c *Composer) VerificationMessage(to, verifyToken string) Message {
	link := c.actionLink("/verify", verifyToken)

	text := fmt.Sprintf(`Hi there,
Please confirm your subscription to GECA News Updates by opening the link below:

%s

The link is valid for 15 minutes. If you did not request this, you can safely ignore this email.`, link)

	return Message{
		From:    c.from,
		To:      to,
		Subject: "Confirm your subscription to GECA News Updates",
		Text:    text,
		HTML: fmt.Sprintf(`<p>Hi there,</p>
<p>Please confirm your subscription to GECA News Updates:</p>
<p><a href="%s">Confirm subscription</a></p>
<p>The link is valid for 15 minutes. If you did not request this, you can safely ignore this email.</p>`,
			html.EscapeString(link)),
	}
}

func (c *Composer) WelcomeMessage(to, unsubscribeToken string) Message {
	link := c.actionLink("/unsubscribe", unsubscribeToken)

	text := fmt.Sprintf(`Hi there,
Thank you for subscribing to GECA News Updates.
From now on, you'll receive email notifications whenever new notices or announcements are posted on the official GECA website.
We send messages only when there's something new — no spam.

To unsubscribe at any time, open: %s`, link)

	return Message{
		From:    c.from,
		To:      to,
		Subject: "Welcome to GECA News Updates 🎓",
		Text:    text,
	}
}

func (c *Composer) DigestMessage(to string, items []DigestItem, unsubscribeToken string) Message {
	link := c.actionLink("/unsubscribe", unsubscribeToken)

	var text strings.Builder
	var htmlBody strings.Builder
	htmlBody.WriteString("<ol>\n")
	for i, item := range items {
		fmt.Fprintf(&text, "%d. %s\n%s\n", i+1, item.Title, item.Link)
		fmt.Fprintf(&htmlBody, `<li><a href="%s">%s</a>`,
			html.EscapeString(item.Link), html.EscapeString(item.Title))
		if item.Excerpt != "" {
			fmt.Fprintf(&text, "%s\n", item.Excerpt)
			fmt.Fprintf(&htmlBody, "<br/><small>%s</small>", html.EscapeString(item.Excerpt))
		}
		text.WriteString("\n")
		htmlBody.WriteString("</li>\n")
	}
	htmlBody.WriteString("</ol>\n")

	fmt.Fprintf(&text, "--\nTo unsubscribe, open: %s\n", link)
	fmt.Fprintf(&htmlBody, `<p><small><a href="%s">Unsubscribe</a></small></p>`,
		html.EscapeString(link))

	return Message{
		From:    c.from,
		To:      to,
		Subject: "GECA News Update 📰",
		Text:    text.String(),
		HTML:    htmlBody.String(),
	}
}

func (c *Composer) actionLink(path, tokenValue string) string {
	return fmt.Sprintf("%s%s?token=%s", c.baseURL, path, url.QueryEscape(tokenValue))
}
