package middleware

import (
	"errors"
	"reflect"
	"strings"

	"cryptourist/internal/apperr"

	"github.com/go-playground/validator/v10"
)

// FieldErrors ошибки полей запроса: имя поля в JSON -> сообщение.
type FieldErrors map[string]string

// BindError переводит ошибку ShouldBindJSON в ошибку приложения с полями.
// dst - структура, в которую выполнялась привязка (для чтения json-тегов).
func BindError(err error, dst any) error {
	return apperr.InvalidErr("Некорректные данные запроса.", FromBindError(err, dst))
}

func FromBindError(err error, dst any) FieldErrors {
	out := FieldErrors{}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			out[fieldKey(dst, fe.StructField())] = messageForTag(fe.Tag(), fe.Param())
		}
		return out
	}

	out["_"] = "Тело запроса не является корректным JSON."
	return out
}

func fieldKey(dst any, structField string) string {
	t := reflect.TypeOf(dst)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return strings.ToLower(structField)
	}

	f, ok := t.FieldByName(structField)
	if !ok {
		return strings.ToLower(structField)
	}
	tag := f.Tag.Get("json")
	if i := strings.Index(tag, ","); i >= 0 {
		tag = tag[:i]
	}
	if tag == "" || tag == "-" {
		return strings.ToLower(structField)
	}
	return tag
}

func messageForTag(tag, param string) string {
	switch tag {
	case "required":
		return "Обязательное поле."
	case "eth_addr":
		return "Ожидается адрес вида 0x и 40 шестнадцатеричных символов."
	case "oneof":
		return "Допустимые значения: " + param + "."
	case "min":
		return "Значение должно быть не меньше " + param + "."
	default:
		return "Некорректное значение."
	}
}
