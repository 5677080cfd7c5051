package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"contacts-server/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string {
	return &s
}

// birthdayIn возвращает дату рождения yearsAgo лет назад со сдвигом daysAhead
// дней от сегодняшней даты (UTC, как CURRENT_DATE в контейнере).
func birthdayIn(yearsAgo, daysAhead int) time.Time {
	d := time.Now().UTC().AddDate(-yearsAgo, 0, daysAhead)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// newContactOwner регистрирует подтвержденного пользователя под контакты.
func (s *IntegrationTestSuite) newContactOwner(t *testing.T, name string) *models.User {
	return s.registerAndConfirm(t, name, fmt.Sprintf("%s@example.com", name), "password123")
}

func (s *IntegrationTestSuite) TestContact_CRUD() {
	t := s.T()
	ctx := context.Background()
	owner := s.newContactOwner(t, "crudowner")

	birthday := birthdayIn(30, 0)
	contact := &models.Contact{
		UserID:         owner.ID,
		FirstName:      "Alice",
		LastName:       "Smith",
		Email:          ptr("alice.smith@example.com"),
		Phone:          ptr("+380501234567"),
		Birthday:       &birthday,
		AdditionalData: ptr("college friend"),
	}

	// 1. Создание
	created, err := s.contactService.CreateContact(ctx, contact)
	require.NoError(t, err, "CreateContact should succeed")
	require.NotZero(t, created.ID, "Contact ID should be assigned")
	require.NotZero(t, created.CreatedAt, "CreatedAt should be filled by the database")
	require.NotZero(t, created.UpdatedAt)

	// 2. Чтение
	got, err := s.contactService.GetContact(ctx, owner.ID, created.ID)
	require.NoError(t, err, "GetContact should find the created contact")
	require.Equal(t, "Alice", got.FirstName)
	require.Equal(t, "Smith", got.LastName)
	require.Equal(t, "Alice Smith", got.FullName())
	require.NotNil(t, got.Email)
	require.Equal(t, "alice.smith@example.com", *got.Email)
	require.NotNil(t, got.Birthday)
	require.Equal(t, birthday.Format("2006-01-02"), got.Birthday.Format("2006-01-02"), "Birthday should round-trip as a date")

	// 3. Полное обновление
	time.Sleep(10 * time.Millisecond) // чтобы updated_at точно отличался
	got.FirstName = "Alicia"
	got.Phone = ptr("+380507654321")
	got.AdditionalData = nil
	updated, err := s.contactService.UpdateContact(ctx, got)
	require.NoError(t, err, "UpdateContact should succeed")
	require.True(t, updated.UpdatedAt.After(updated.CreatedAt), "UpdatedAt should advance on update")

	got, err = s.contactService.GetContact(ctx, owner.ID, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Alicia", got.FirstName)
	require.NotNil(t, got.Phone)
	require.Equal(t, "+380507654321", *got.Phone)
	require.Nil(t, got.AdditionalData, "Cleared additional data should become NULL")

	// 4. Удаление
	err = s.contactService.DeleteContact(ctx, owner.ID, created.ID)
	require.NoError(t, err, "DeleteContact should succeed")

	_, err = s.contactService.GetContact(ctx, owner.ID, created.ID)
	require.Error(t, err)
	require.True(t, errors.Is(err, models.ErrContactNotFound), "Error should be ErrContactNotFound")

	// Повторное удаление - тоже not found
	err = s.contactService.DeleteContact(ctx, owner.ID, created.ID)
	require.Error(t, err)
	require.True(t, errors.Is(err, models.ErrContactNotFound))
}

func (s *IntegrationTestSuite) TestContact_OwnerIsolation() {
	t := s.T()
	ctx := context.Background()
	alice := s.newContactOwner(t, "isolationalice")
	bob := s.newContactOwner(t, "isolationbob")

	contact := &models.Contact{UserID: alice.ID, FirstName: "Secret", LastName: "Friend"}
	_, err := s.contactService.CreateContact(ctx, contact)
	require.NoError(t, err)

	// 1. Чужой контакт невидим: для Боба его просто не существует
	_, err = s.contactService.GetContact(ctx, bob.ID, contact.ID)
	require.Error(t, err, "Foreign contact should not be readable")
	require.True(t, errors.Is(err, models.ErrContactNotFound), "Error should be ErrContactNotFound, not a permission error")

	// 2. Чужой контакт нельзя обновить
	foreign := *contact
	foreign.UserID = bob.ID
	foreign.FirstName = "Hacked"
	_, err = s.contactService.UpdateContact(ctx, &foreign)
	require.Error(t, err)
	require.True(t, errors.Is(err, models.ErrContactNotFound))

	// 3. Чужой контакт нельзя удалить
	err = s.contactService.DeleteContact(ctx, bob.ID, contact.ID)
	require.Error(t, err)
	require.True(t, errors.Is(err, models.ErrContactNotFound))

	// 4. В списке Боба контактов нет, у Алисы контакт цел
	bobContacts, err := s.contactService.ListContacts(ctx, bob.ID, 10, 0)
	require.NoError(t, err)
	require.Empty(t, bobContacts, "Bob should not see Alice's contacts")

	got, err := s.contactService.GetContact(ctx, alice.ID, contact.ID)
	require.NoError(t, err)
	require.Equal(t, "Secret", got.FirstName, "Alice's contact should be untouched")
}

func (s *IntegrationTestSuite) TestContact_DuplicatesPerOwner() {
	t := s.T()
	ctx := context.Background()
	alice := s.newContactOwner(t, "dupalice")
	bob := s.newContactOwner(t, "dupbob")

	first := &models.Contact{UserID: alice.ID, FirstName: "First", LastName: "Contact", Email: ptr("shared@example.com"), Phone: ptr("+380501112233")}
	_, err := s.contactService.CreateContact(ctx, first)
	require.NoError(t, err)

	// 1. Повторный email у того же владельца
	dupEmail := &models.Contact{UserID: alice.ID, FirstName: "Second", LastName: "Contact", Email: ptr("shared@example.com")}
	_, err = s.contactService.CreateContact(ctx, dupEmail)
	require.Error(t, err, "Duplicate contact email for the same owner should fail")
	require.True(t, errors.Is(err, models.ErrContactEmailConflict), "Error should be ErrContactEmailConflict")

	// 2. Повторный телефон у того же владельца
	dupPhone := &models.Contact{UserID: alice.ID, FirstName: "Third", LastName: "Contact", Phone: ptr("+380501112233")}
	_, err = s.contactService.CreateContact(ctx, dupPhone)
	require.Error(t, err, "Duplicate contact phone for the same owner should fail")
	require.True(t, errors.Is(err, models.ErrContactPhoneConflict), "Error should be ErrContactPhoneConflict")

	// 3. У другого владельца те же email и телефон допустимы
	bobContact := &models.Contact{UserID: bob.ID, FirstName: "Bobs", LastName: "Contact", Email: ptr("shared@example.com"), Phone: ptr("+380501112233")}
	_, err = s.contactService.CreateContact(ctx, bobContact)
	require.NoError(t, err, "Uniqueness is scoped per owner")

	// 4. Обновление в конфликтующий email
	other := &models.Contact{UserID: alice.ID, FirstName: "Fourth", LastName: "Contact", Email: ptr("unique@example.com")}
	_, err = s.contactService.CreateContact(ctx, other)
	require.NoError(t, err)

	other.Email = ptr("shared@example.com")
	_, err = s.contactService.UpdateContact(ctx, other)
	require.Error(t, err, "Updating into a duplicate email should fail")
	require.True(t, errors.Is(err, models.ErrContactEmailConflict))

	// 5. Два контакта без email и телефона не конфликтуют (NULL не уникален)
	for i := 0; i < 2; i++ {
		empty := &models.Contact{UserID: alice.ID, FirstName: fmt.Sprintf("Empty%d", i), LastName: "Fields"}
		_, err = s.contactService.CreateContact(ctx, empty)
		require.NoError(t, err, "Contacts without email and phone should not conflict")
	}
}

func (s *IntegrationTestSuite) TestContact_ListAndSearch() {
	t := s.T()
	ctx := context.Background()
	owner := s.newContactOwner(t, "searchowner")

	seed := []struct {
		firstName, lastName, email string
	}{
		{"Alice", "Smith", "alice@example.com"},
		{"Bob", "Johnson", "bob@example.com"},
		{"Carol", "Smithers", "carol@other.org"},
	}
	for _, c := range seed {
		contact := &models.Contact{UserID: owner.ID, FirstName: c.firstName, LastName: c.lastName, Email: ptr(c.email)}
		_, err := s.contactService.CreateContact(ctx, contact)
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond) // стабильный порядок по created_at
	}

	// 1. Список с пагинацией, порядок по времени создания
	page, err := s.contactService.ListContacts(ctx, owner.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "Alice", page[0].FirstName)
	require.Equal(t, "Bob", page[1].FirstName)

	page, err = s.contactService.ListContacts(ctx, owner.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "Carol", page[0].FirstName)

	// 2. Нулевой лимит заменяется дефолтным
	page, err = s.contactService.ListContacts(ctx, owner.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, page, 3)

	// 3. Поиск по подстроке фамилии, без учета регистра
	found, err := s.contactService.SearchContacts(ctx, owner.ID, "smith", 10, 0)
	require.NoError(t, err)
	require.Len(t, found, 2, "Search should match Smith and Smithers")

	found, err = s.contactService.SearchContacts(ctx, owner.ID, "SMITH", 10, 0)
	require.NoError(t, err)
	require.Len(t, found, 2, "Search should be case-insensitive")

	// 4. Поиск по email
	found, err = s.contactService.SearchContacts(ctx, owner.ID, "other.org", 10, 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "Carol", found[0].FirstName)

	// 5. Поиск без совпадений возвращает пустой список, а не ошибку
	found, err = s.contactService.SearchContacts(ctx, owner.ID, "zzz-no-match", 10, 0)
	require.NoError(t, err)
	require.Empty(t, found)

	// 6. Пустой запрос эквивалентен обычному списку
	found, err = s.contactService.SearchContacts(ctx, owner.ID, "   ", 10, 0)
	require.NoError(t, err)
	require.Len(t, found, 3)
}

func (s *IntegrationTestSuite) TestContact_UpcomingBirthdays() {
	t := s.T()
	ctx := context.Background()
	owner := s.newContactOwner(t, "birthdayowner")

	mkContact := func(firstName string, birthday *time.Time) {
		contact := &models.Contact{UserID: owner.ID, FirstName: firstName, LastName: "Birthday", Birthday: birthday}
		_, err := s.contactService.CreateContact(ctx, contact)
		require.NoError(t, err)
	}

	today := birthdayIn(25, 0)
	inThree := birthdayIn(30, 3)
	inSeven := birthdayIn(40, 7)
	inTen := birthdayIn(35, 10)

	mkContact("Today", &today)
	mkContact("InThree", &inThree)
	mkContact("InSeven", &inSeven)
	mkContact("InTen", &inTen)
	mkContact("NoBirthday", nil)

	// Окно - ближайшие 7 дней, включая сегодняшнюю годовщину
	upcoming, err := s.contactService.UpcomingBirthdays(ctx, owner.ID)
	require.NoError(t, err)

	names := make([]string, 0, len(upcoming))
	for _, c := range upcoming {
		names = append(names, c.FirstName)
	}
	require.Equal(t, []string{"Today", "InThree", "InSeven"}, names, "Window should cover today through day seven, ordered by the nearest anniversary")
}

func (s *IntegrationTestSuite) TestContact_ValidationThroughService() {
	t := s.T()
	ctx := context.Background()
	owner := s.newContactOwner(t, "validationowner")

	// 1. Невалидный email контакта
	bad := &models.Contact{UserID: owner.ID, FirstName: "Bad", LastName: "Email", Email: ptr("not-an-email")}
	_, err := s.contactService.CreateContact(ctx, bad)
	require.Error(t, err, "Invalid contact email should be rejected before hitting the database")
	require.True(t, errors.Is(err, models.ErrInvalidInput), "Error should be ErrInvalidInput")

	// 2. Невалидный телефон
	bad = &models.Contact{UserID: owner.ID, FirstName: "Bad", LastName: "Phone", Phone: ptr("12-34")}
	_, err = s.contactService.CreateContact(ctx, bad)
	require.Error(t, err)
	require.True(t, errors.Is(err, models.ErrInvalidInput))

	// 3. Пустое имя
	bad = &models.Contact{UserID: owner.ID, FirstName: "   ", LastName: "Name"}
	_, err = s.contactService.CreateContact(ctx, bad)
	require.Error(t, err)
	require.True(t, errors.Is(err, models.ErrInvalidInput))

	// 4. Ничего не записалось
	contacts, err := s.contactService.ListContacts(ctx, owner.ID, 10, 0)
	require.NoError(t, err)
	require.Empty(t, contacts, "Failed validations should not create rows")

	// 5. Удаление со случайным ID
	err = s.contactService.DeleteContact(ctx, owner.ID, uuid.New())
	require.Error(t, err)
	require.True(t, errors.Is(err, models.ErrContactNotFound))
}
