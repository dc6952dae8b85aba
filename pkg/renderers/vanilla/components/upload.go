package components

import (
	"bytes"
	"html"
	"strconv"
	"strings"

	"github.com/goliatone/go-backoffice/pkg/model"
)

// Banner entry keys.
const (
	BannerFileURL = "fileUrl"
	BannerTitle   = "title"
	BannerLink    = "link"
)

// imageRenderer shows the current image, the file picker and, once a file
// is staged, its local preview with a confirm action.
func imageRenderer(buf *bytes.Buffer, field model.Field, data ComponentData) error {
	var b strings.Builder
	b.WriteString(`<div class="bo-upload bo-upload--image"`)
	writeAttr(&b, "id", ControlID(field.Code))
	b.WriteString(`>`)
	if current := strings.TrimSpace(Text(data.Value)); current != "" {
		b.WriteString(`<figure class="bo-upload-current"><img`)
		writeAttr(&b, "src", current)
		writeAttr(&b, "alt", field.DisplayLabel())
		b.WriteString(`></figure>`)
	}
	writeUploadControls(&b, field, data)
	b.WriteString(`</div>`)
	buf.WriteString(b.String())
	return nil
}

// bannerRenderer lists banner entries with editable title and link cells; a
// confirmed upload appends a new entry.
func bannerRenderer(buf *bytes.Buffer, field model.Field, data ComponentData) error {
	rows := model.RowsFromValue(data.Value)
	editable := field.IsModify
	var b strings.Builder

	b.WriteString(`<div class="bo-upload bo-upload--banner"`)
	writeAttr(&b, "id", ControlID(field.Code))
	b.WriteString(`>`)
	if editable {
		writePresence(&b, TablePresenceKey, field.Code)
	}
	b.WriteString(`<ul class="bo-banner-list">`)
	for idx, row := range rows {
		if row.Deleted() {
			b.WriteString(`<li class="bo-banner bo-row--deleted" data-deleted="true"><s>`)
			b.WriteString(html.EscapeString(Text(row[BannerTitle])))
			b.WriteString(`</s></li>`)
			continue
		}
		b.WriteString(`<li class="bo-banner"><img`)
		writeAttr(&b, "src", Text(row[BannerFileURL]))
		writeAttr(&b, "alt", Text(row[BannerTitle]))
		b.WriteString(`>`)
		if editable {
			for _, key := range []string{BannerTitle, BannerLink} {
				b.WriteString(`<input type="text" class="bo-input bo-input--cell"`)
				writeAttr(&b, "name", CellName(field.Code, idx, key))
				writeAttr(&b, "value", Text(row[key]))
				writeAttr(&b, "placeholder", key)
				b.WriteString(`>`)
			}
			writeActionButton(&b, TableAction(data.Action, field.Code, "rows", strconv.Itoa(idx), "delete"), "Remove", "bo-button--danger", false)
		} else {
			writeCaption(&b, row)
		}
		b.WriteString(`</li>`)
	}
	b.WriteString(`</ul>`)
	if editable && len(rows) > 0 {
		writeActionButton(&b, TableAction(data.Action, field.Code, "apply"), "Apply", "bo-button--primary", false)
	}
	writeUploadControls(&b, field, data)
	b.WriteString(`</div>`)
	buf.WriteString(b.String())
	return nil
}

// labelBannerRenderer is the read-only banner list with captions.
func labelBannerRenderer(buf *bytes.Buffer, field model.Field, data ComponentData) error {
	var b strings.Builder
	b.WriteString(`<ul class="bo-banner-list bo-banner-list--readonly"`)
	writeAttr(&b, "id", ControlID(field.Code))
	b.WriteString(`>`)
	for _, row := range model.RowsFromValue(data.Value) {
		if row.Deleted() {
			continue
		}
		b.WriteString(`<li class="bo-banner"><figure><img`)
		writeAttr(&b, "src", Text(row[BannerFileURL]))
		writeAttr(&b, "alt", Text(row[BannerTitle]))
		b.WriteString(`>`)
		writeCaption(&b, row)
		b.WriteString(`</figure></li>`)
	}
	b.WriteString(`</ul>`)
	buf.WriteString(b.String())
	return nil
}

func writeCaption(b *strings.Builder, row model.Row) {
	title := strings.TrimSpace(Text(row[BannerTitle]))
	link := strings.TrimSpace(Text(row[BannerLink]))
	if title == "" && link == "" {
		return
	}
	b.WriteString(`<figcaption>`)
	if link != "" {
		b.WriteString(`<a rel="noopener" target="_blank"`)
		writeAttr(b, "href", link)
		b.WriteString(`>`)
		if title == "" {
			title = link
		}
		b.WriteString(html.EscapeString(title))
		b.WriteString(`</a>`)
	} else {
		b.WriteString(html.EscapeString(title))
	}
	b.WriteString(`</figcaption>`)
}

func writeUploadControls(b *strings.Builder, field model.Field, data ComponentData) {
	if !field.IsModify {
		return
	}
	if staged := data.Staged; staged != nil {
		b.WriteString(`<div class="bo-upload-preview"><img`)
		writeAttr(b, "src", staged.PreviewURL)
		writeAttr(b, "alt", staged.Filename)
		b.WriteString(`><span class="bo-upload-name">`)
		b.WriteString(html.EscapeString(staged.Filename))
		b.WriteString(`</span>`)
		writeActionButton(b, UploadAction(data.Action, field.Code, "confirm"), "Upload", "bo-button--primary", false)
		b.WriteString(`</div>`)
	}
	b.WriteString(`<input type="file" name="file" class="bo-file"`)
	writeAttr(b, "id", ControlID(field.Code)+"-file")
	accept := strings.TrimSpace(field.Config.Accept)
	if accept == "" {
		accept = "image/*"
	}
	writeAttr(b, "accept", accept)
	b.WriteString(`>`)
	writeActionButton(b, UploadAction(data.Action, field.Code), "Preview", "", true)
}
