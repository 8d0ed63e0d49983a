package useCases

const (
	textStart              = "Добро пожаловать! Для начала работы, пожалуйста, поделитесь номером телефона."
	textShareContactButton = "📱 Отправить номер телефона"

	textHelp = `🤖 *Команды бота:*

/start - Начать работу с ботом
/help - Показать эту справку
/domofons - Показать список доступных домофонов

*Возможности:*
• 📱 Авторизация по номеру телефона
• 📋 Просмотр списка доступных домофонов
• 📷 Получение снимков с камер
• 🚪 Открытие дверей
• 🔔 Уведомления о входящих вызовах

*Как пользоваться:*
1. Отправьте свой номер телефона для авторизации
2. Используйте команду /domofons для просмотра списка
3. Нажимайте на кнопки для получения снимков и открытия дверей`

	textAdminHelp = `

*Администратору:*
/grant <телефон> <id домофона> - выдать доступ
/revoke <телефон> <id домофона> - отозвать доступ`

	textAuthOK     = "✅ Авторизация успешна! Используйте /domofons для просмотра доступных домофонов."
	textAuthFailed = "❌ Ошибка авторизации. Попробуйте позже или обратитесь в поддержку."
	textNotAuthed  = "Вы не авторизованы. Используйте /start для авторизации."

	textChooseAction = "Выберите действие:"
	textNoDevices    = "У вас нет доступных домофонов"
	textListFailed   = "❌ Ошибка получения списка домофонов. Попробуйте позже."

	textSnapshotCaption = "📷 Снимок с камеры"
	textSnapshotFailed  = "❌ Не удалось получить снимок"
	textDoorOpened      = "✅ Дверь открыта"
	textDoorFailed      = "❌ Не удалось открыть дверь"
	textBadAction       = "❌ Ошибка: неизвестное действие. Запросите список заново: /domofons"

	textIncomingCall = "🔔 Входящий вызов в домофон!"
	textOpenDoorBtn  = "🚪 Открыть дверь"
	textOpenBtn      = "🚪 Открыть"

	textAdminsOnly   = "⛔ Команда доступна только администратору."
	textGrantUsage   = "Использование: /grant <телефон> <id домофона>"
	textRevokeUsage  = "Использование: /revoke <телефон> <id домофона>"
	textGrantOK      = "✅ Доступ выдан"
	textGrantFailed  = "❌ Не удалось выдать доступ"
	textRevokeOK     = "✅ Доступ отозван"
	textRevokeFailed = "❌ Не удалось отозвать доступ"
	textUnknown      = "Неизвестная команда. Используйте /domofons или /help."
)
