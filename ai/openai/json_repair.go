// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import "strings"

// repairJSON fixes a missing opening quote before object keys, a mistake small
// models make often enough to matter: `{title": "x"}` becomes `{"title": "x"}`.
func repairJSON(s string) string {
	in := []rune(s)
	out := make([]rune, 0, len(in)+16)

	for i := 0; i < len(in); {
		ch := in[i]
		out = append(out, ch)
		i++
		if ch != '{' && ch != ',' {
			continue
		}

		for i < len(in) && (in[i] == ' ' || in[i] == '\n' || in[i] == '\t') {
			out = append(out, in[i])
			i++
		}
		if i >= len(in) || !isKeyStart(in[i]) {
			continue
		}

		keyStart := i
		for i < len(in) && (isKeyStart(in[i]) || in[i] == '_' || in[i] == ' ') {
			i++
		}
		if i+1 < len(in) && in[i] == '"' && in[i+1] == ':' {
			// the closing quote is already present at in[i]
			out = append(out, '"')
			out = append(out, []rune(strings.TrimSpace(string(in[keyStart:i])))...)
		} else {
			out = append(out, in[keyStart:i]...)
		}
	}

	return string(out)
}

// isKeyStart reports whether r can begin an unquoted key.
func isKeyStart(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
