// Package sl содержит вспомогательные функции для построения атрибутов slog.
package sl

import "log/slog"

// Err возвращает slog.Attr с ключом "error". Для nil пишется пустая строка.
//
// Пример:
//
//	log.Error("failed to do something", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// Op атрибут с именем операции
func Op(op string) slog.Attr {
	return slog.String("op", op)
}

// UserID атрибут с id пользователя
func UserID(id int64) slog.Attr {
	return slog.Int64("user_id", id)
}
