// elClip: a tool for trimming SAM alignments to reference windows.
// Copyright (c) 2026 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elclip/blob/master/LICENSE.txt>.

package internal

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestTempSibling(t *testing.T) {
	name := filepath.Join("out", "trimmed.sam")
	tmp1, tmp2 := TempSibling(name), TempSibling(name)
	if tmp1 == tmp2 {
		t.Error("TempSibling returned the same name twice")
	}
	if filepath.Dir(tmp1) != "out" {
		t.Errorf("TempSibling(%v) = %v is not in the same directory", name, tmp1)
	}
	if base := filepath.Base(tmp1); !strings.HasPrefix(base, ".trimmed.sam.") || !strings.HasSuffix(base, ".tmp") {
		t.Errorf("TempSibling(%v) = %v", name, tmp1)
	}
}
