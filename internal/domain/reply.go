package domain

// Button — инлайн-кнопка с callback-данными.
type Button struct {
	Text string
	Data string
}

// Reply — то, что отправляется в чат: текст или фото с подписью и клавиатурой.
type Reply struct {
	Text     string // для фото используется как подпись
	Markdown bool
	Photo    []byte

	Inline [][]Button
	// RequestContact — подпись кнопки "поделиться номером"; пустая строка — без неё.
	RequestContact string
}

func (r Reply) HasPhoto() bool {
	return len(r.Photo) > 0
}
