package sandbox

import (
	"crypto/hmac"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"staybook/internal/pkg/response"
)

// PayHandler stands in for the hosted payment page. It checks the signed
// redirect, approves the order (or declines it with ?code=) and redirects to
// callbackURL with a signed callback.
func (g *Gateway) PayHandler(callbackURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		fields := map[string]string{}
		for _, k := range []string{FieldOrderID, FieldAmount, FieldOrderInfo, FieldReturnURL, FieldSignature} {
			if v := c.Query(k); v != "" {
				fields[k] = v
			}
		}
		if !hmac.Equal([]byte(fields[FieldSignature]), []byte(g.Sign(fields))) {
			response.Error(c, http.StatusBadRequest, "INVALID_SIGNATURE", "Payment link signature is invalid")
			return
		}
		amount, err := decimal.NewFromString(fields[FieldAmount])
		if err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid amount")
			return
		}
		code := c.DefaultQuery("code", CodeSuccess)

		q := url.Values{}
		for k, v := range g.Callback(fields[FieldOrderID], amount, "sbx_"+uuid.NewString(), code) {
			q.Set(k, v)
		}
		c.Redirect(http.StatusFound, callbackURL+"?"+q.Encode())
	}
}
