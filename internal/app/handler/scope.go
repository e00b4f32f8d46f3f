package handler

import (
	"Grid-SSRM/internal/app/ssrm"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// TenantHeader - заголовок с идентификатором арендатора
const TenantHeader = "X-Tenant-ID"

// Scope строит базовый пайплайн, который движок ставит перед любыми своими стадиями
type Scope struct {
	baseMatch   bson.D
	tenantField string
}

// NewScope разбирает baseMatch (extended JSON документ для $match).
// Если задан tenantField, каждый запрос обязан передать X-Tenant-ID.
func NewScope(baseMatch, tenantField string) (*Scope, error) {
	scope := &Scope{tenantField: strings.TrimSpace(tenantField)}
	if strings.TrimSpace(baseMatch) != "" {
		var doc bson.D
		if err := bson.UnmarshalExtJSON([]byte(baseMatch), false, &doc); err != nil {
			return nil, fmt.Errorf("invalid base match %q: %v", baseMatch, err)
		}
		scope.baseMatch = doc
	}
	return scope, nil
}

func (s *Scope) Pipeline(ctx *gin.Context) (mongo.Pipeline, error) {
	base := mongo.Pipeline{}
	if len(s.baseMatch) > 0 {
		base = append(base, bson.D{{Key: "$match", Value: s.baseMatch}})
	}
	if s.tenantField != "" {
		tenant := strings.TrimSpace(ctx.GetHeader(TenantHeader))
		if tenant == "" {
			return nil, &ssrm.ValidationError{Msg: TenantHeader + " header is required"}
		}
		base = append(base, bson.D{{Key: "$match", Value: bson.D{{Key: s.tenantField, Value: tenant}}}})
	}
	return base, nil
}
