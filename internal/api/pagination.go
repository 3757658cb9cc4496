package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const defaultPageSize = 6

// Page is the standard list envelope.
type Page struct {
	Count    int64       `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  interface{} `json:"results"`
}

// pageParams reads the page number and page size from the query string.
// Page size is controlled by "limit" and defaults to 6.
func pageParams(c *gin.Context) (limit, offset, pageNum int) {
	pageNum = 1
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		pageNum = v
	}
	limit = defaultPageSize
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = v
	}
	offset = (pageNum - 1) * limit
	return limit, offset, pageNum
}

// newPage builds the envelope, deriving next/previous links from the
// request URL.
func newPage(c *gin.Context, count int64, limit, pageNum int, results interface{}) Page {
	p := Page{Count: count, Results: results}
	if int64(pageNum*limit) < count {
		p.Next = pageURL(c, pageNum+1)
	}
	if pageNum > 1 {
		p.Previous = pageURL(c, pageNum-1)
	}
	return p
}

func pageURL(c *gin.Context, pageNum int) *string {
	u := *c.Request.URL
	q := u.Query()
	if pageNum <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(pageNum))
	}
	u.RawQuery = q.Encode()
	s := u.String()
	return &s
}
