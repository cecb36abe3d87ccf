package ctxutil

import "context"

type requestDataKey struct{}

// RequestData is the authenticated principal of a request.
type RequestData struct {
	LearnerID   string
	TokenString string
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(Default(ctx), requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		return rd
	}
	return nil
}

// LearnerID returns the authenticated learner id or "".
func LearnerID(ctx context.Context) string {
	if rd := GetRequestData(ctx); rd != nil {
		return rd.LearnerID
	}
	return ""
}
