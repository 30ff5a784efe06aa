// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package export

import (
	"embed"
	"html/template"
)

//go:embed templates/flipbook.html
var templatesFS embed.FS

var shellTmpl = template.Must(template.New("flipbook.html").ParseFS(templatesFS, "templates/flipbook.html"))
