package preprocess

import (
	"regexp"
	"strings"

	tagxerrors "github.com/conneroisu/tagx/internal/errors"
)

// tagPattern matches the start of a component tag: an optional "prefix:",
// any number of "path." segments and a final segment that starts with an
// uppercase letter.
var tagPattern = regexp.MustCompile(`<((?:[0-9A-Za-z_-]+:)?(?:[0-9A-Za-z_-]+\.)*[A-Z][0-9A-Za-z_-]*)[\s/>]`)

const (
	inlineOpen = `{{ $.Render `
	blockOpen  = `{{ range $slot, $_ := $.RenderBlock . `
	blockBody  = ` -}}`
	blockClose = `{{- end }}`
)

// Preprocess rewrites every component tag in source into a render directive.
// name identifies the template in error messages.
func Preprocess(source, name string) (string, error) {
	masked, mask := maskRaw(source)

	out, err := rewriteTags(masked, name, mask)
	if err != nil {
		return "", err
	}

	return mask.restore(out), nil
}

// HasTags reports whether source contains a component tag outside verbatim
// spans.
func HasTags(source string) bool {
	masked, _ := maskRaw(source)
	return tagPattern.MatchString(masked)
}

// rewriteTags replaces tags until none are left. Scanning resumes at the start
// of each replacement so tags exposed inside a block body are found next.
func rewriteTags(source, name string, mask *rawMask) (string, error) {
	from := 0
	for {
		loc := tagPattern.FindStringSubmatchIndex(source[from:])
		if loc == nil {
			return source, nil
		}
		start := from + loc[0]
		tag := source[from+loc[2] : from+loc[3]]

		repl, end, err := rewriteOne(source, name, mask, tag, start, from+loc[3])
		if err != nil {
			return "", err
		}

		source = source[:start] + repl + source[end:]
		from = start
	}
}

// rewriteOne builds the replacement for the tag opening at start. attrStart
// is the offset right after the tag name. Verbatim actions inside the opening
// tag are attribute values, so they are unmasked before tokenizing.
func rewriteOne(source, name string, mask *rawMask, tag string, start, attrStart int) (string, int, error) {
	line := strings.Count(source[:start], "\n") + 1

	rawAttrs, end := scanOpeningTag(source, attrStart)
	if end < 0 {
		return "", 0, tagxerrors.NewSyntaxError("Syntax error `"+tag+"`", name, line)
	}

	lines := strings.Count(source[attrStart:end], "\n")

	content := ""
	if !strings.HasSuffix(source[:end], "/>") {
		closeTag := "</" + tag + ">"
		idx := strings.Index(source[end:], closeTag)
		if idx < 0 {
			return "", 0, tagxerrors.NewUnclosedTagError(tag, name, line)
		}
		content = source[end : end+idx]
		end += idx + len(closeTag)
	}

	attrs, err := TokenizeAttrs(mask.restore(rawAttrs))
	if err != nil {
		return "", 0, tagxerrors.NewSyntaxError("Syntax error `"+tag+"`", name, line).WithContext("cause", err.Error())
	}

	return buildCall(tag, attrs, content, lines), end, nil
}

// scanOpeningTag finds the ">" ending the opening tag whose attributes start
// at i. Quotes and {{ }} expressions are mutually exclusive contexts: a ">"
// inside either is literal text. It returns the attribute text and the offset
// just past the ">", or -1 when the tag is malformed.
func scanOpeningTag(source string, i int) (string, int) {
	var inSingle, inDouble, inBraces bool
	start := i
	end := -1

	for i < len(source) {
		ch := source[i]
		if !inSingle && !inDouble {
			if strings.HasPrefix(source[i:], "{{") {
				if inBraces {
					break
				}
				inBraces = true
				i += 2
				continue
			}
			if strings.HasPrefix(source[i:], "}}") {
				if !inBraces {
					break
				}
				inBraces = false
				i += 2
				continue
			}
		}
		if (inSingle || inDouble) && ch == '\\' && i+1 < len(source) && (source[i+1] == '"' || source[i+1] == '\'') {
			i += 2
			continue
		}
		if ch == '\'' && !inDouble {
			inSingle = !inSingle
			i++
			continue
		}
		if ch == '"' && !inSingle {
			inDouble = !inDouble
			i++
			continue
		}
		if ch == '>' && !inSingle && !inDouble && !inBraces {
			end = i + 1
			break
		}
		i++
	}
	if end < 0 {
		return "", -1
	}

	attrs := strings.TrimSpace(source[start:end])
	attrs = strings.TrimSuffix(attrs, ">")
	attrs = strings.TrimSuffix(attrs, "/")
	return attrs, end
}

// buildCall emits the render action. The action keeps as many newlines as
// the opening tag spanned so later line numbers match the source.
func buildCall(tag string, attrs []Attr, content string, lines int) string {
	var args strings.Builder
	args.WriteByte('"')
	args.WriteString(tag)
	args.WriteByte('"')
	for _, a := range attrs {
		key, value := lowerAttr(a)
		args.WriteByte(' ')
		args.WriteString(key)
		args.WriteByte(' ')
		args.WriteString(value)
	}

	if pad := lines - strings.Count(args.String(), "\n"); pad > 0 {
		args.WriteString(strings.Repeat("\n", pad))
	}

	if content == "" {
		return inlineOpen + args.String() + " }}"
	}
	return blockOpen + args.String() + blockBody + content + blockClose
}
