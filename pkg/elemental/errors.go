package elemental

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrElemental matches every error returned by this package via errors.Is.
var ErrElemental = errors.New("elemental")

// RequestError reports a transport failure: the request never produced a response.
type RequestError struct {
	Method string
	URL    string
	Err    error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %s failed\n%v", e.Method, e.URL, e.Err)
}

func (e *RequestError) Unwrap() error        { return e.Err }
func (e *RequestError) Is(target error) bool { return target == ErrElemental }

// ResponseError reports a status code outside 200/201.
type ResponseError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s: %s failed\nResponse: %d\n%s", e.Method, e.URL, e.StatusCode, e.Body)
}

func (e *ResponseError) Is(target error) bool { return target == ErrElemental }

// Messages extracts human readable messages from the body: the text of every
// <error> element, or the page title for HTML error pages.
func (e *ResponseError) Messages() []string {
	if strings.TrimSpace(e.Body) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(e.Body))
	if err != nil {
		return nil
	}

	var out []string
	doc.Find("error").Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			out = append(out, text)
		}
	})
	if len(out) == 0 {
		if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
			out = append(out, title)
		}
	}
	return out
}

// OperationError reports a 200 response whose body signals failure.
type OperationError struct {
	Op         string
	StatusCode int
	Body       string
	Message    string
	Err        error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s failed\nResponse: %d\n%s", e.Op, e.StatusCode, e.Body)
}

func (e *OperationError) Unwrap() error        { return e.Err }
func (e *OperationError) Is(target error) bool { return target == ErrElemental }
