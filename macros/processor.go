package macros

import (
	"bytes"
	"strings"
	"sync"
)

const (
	macroPrefix = "${"
	macroSuffix = "}"

	// burls often embed per-bid values, so the template cache stops growing at this size.
	maxCachedTemplates = 1024
)

type Processor interface {
	// Replace substitutes every known ${KEY} placeholder in url with its provider value.
	// Unknown placeholders are kept verbatim. ok is false when url is empty.
	Replace(url string, macroProvider Provider) (result string, ok bool)
}

// NewProcessor returns a processor that caches the placeholder positions of every url it sees.
func NewProcessor() Processor {
	return &stringIndexProcessor{
		templates: make(map[string]urlMetaTemplate),
	}
}

type stringIndexProcessor struct {
	templates map[string]urlMetaTemplate
	sync.RWMutex
}

type urlMetaTemplate struct {
	// start of each "${" and the index of its closing "}"
	indices []int
	ends    []int
}

func constructTemplate(url string) urlMetaTemplate {
	tmplt := urlMetaTemplate{}
	currentIndex := 0
	for currentIndex < len(url) {
		start := strings.Index(url[currentIndex:], macroPrefix)
		if start == -1 {
			break
		}
		start += currentIndex
		nameIndex := start + len(macroPrefix)
		end := strings.Index(url[nameIndex:], macroSuffix)
		if end == -1 {
			break
		}
		end += nameIndex
		// an unclosed "${" gives way to the last opener before the "}"
		if inner := strings.LastIndex(url[nameIndex:end], macroPrefix); inner != -1 {
			start = nameIndex + inner
		}
		tmplt.indices = append(tmplt.indices, start)
		tmplt.ends = append(tmplt.ends, end)
		currentIndex = end + len(macroSuffix)
	}
	return tmplt
}

func (processor *stringIndexProcessor) Replace(url string, macroProvider Provider) (string, bool) {
	if url == "" {
		return "", false
	}
	tmplt := processor.getTemplate(url)

	var result bytes.Buffer
	result.Grow(len(url))
	// http://dsp.example.com/win?auction=${AUCTION_ID}&price=${AUCTION_PRICE}&keep=${OTHER}
	currentIndex := 0
	for i, index := range tmplt.indices {
		macro := url[index+len(macroPrefix) : tmplt.ends[i]]
		next := tmplt.ends[i] + len(macroSuffix)
		value, known := macroProvider.GetMacro(macro)
		if !known {
			continue
		}
		result.WriteString(url[currentIndex:index])
		result.WriteString(value)
		currentIndex = next
	}
	result.WriteString(url[currentIndex:])
	return result.String(), true
}

func (processor *stringIndexProcessor) getTemplate(url string) urlMetaTemplate {
	var (
		template urlMetaTemplate
		ok       bool
	)
	processor.RLock()
	template, ok = processor.templates[url]
	processor.RUnlock()

	if !ok {
		template = constructTemplate(url)
		processor.Lock()
		if len(processor.templates) < maxCachedTemplates {
			processor.templates[url] = template
		}
		processor.Unlock()
	}
	return template
}
