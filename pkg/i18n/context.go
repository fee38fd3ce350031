package i18n

import "context"

type translatorKey struct{}

// WithTranslator returns ctx carrying t for the rest of the request.
func WithTranslator(ctx context.Context, t Translator) context.Context {
	return context.WithValue(ctx, translatorKey{}, t)
}

// TranslatorFromContext returns the request translator, or one that echoes codes.
func TranslatorFromContext(ctx context.Context) Translator {
	if ctx != nil {
		if t, ok := ctx.Value(translatorKey{}).(Translator); ok && t != nil {
			return t
		}
	}
	return echo{}
}

// LocaleFromContext is the locale of the request translator, or "".
func LocaleFromContext(ctx context.Context) string {
	if l, ok := TranslatorFromContext(ctx).(interface{ Locale() string }); ok {
		return l.Locale()
	}
	return ""
}

type echo struct{}

func (echo) T(code string, _ Params) string { return code }
