package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// TransactionAttributes annotates the New Relic transaction started by
// nrgin with the caller and ride of the request. Without an agent it does nothing.
func TransactionAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		txn := nrgin.Transaction(c)
		if txn == nil {
			c.Next()
			return
		}

		if caller := Caller(c); caller != "" {
			txn.AddAttribute("caller", caller)
		}
		if id := c.Param("id"); id != "" {
			txn.AddAttribute("ride_id", id)
		}

		c.Next()

		for _, err := range c.Errors {
			if c.Writer.Status() >= 500 {
				txn.NoticeError(err.Err)
			}
		}
	}
}
