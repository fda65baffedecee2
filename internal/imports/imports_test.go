package imports

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sanctus-app/sanctus/internal/authz"
	"github.com/sanctus-app/sanctus/internal/finance"
	"github.com/sanctus-app/sanctus/internal/members"
	"github.com/sanctus-app/sanctus/internal/shared"
)

type recordingMembers struct {
	created []members.CreateInput
	codes   map[string]bool
}

func (r *recordingMembers) Create(_ context.Context, _ authz.Principal, in members.CreateInput) (members.Member, error) {
	if r.codes == nil {
		r.codes = map[string]bool{}
	}
	if r.codes[in.MemberCode] {
		return members.Member{}, shared.Conflict("member_code already exists in this parish")
	}
	if in.MemberCode == "BOOM" {
		return members.Member{}, errors.New(`ERROR: relation "member" does not exist (SQLSTATE 42P01)`)
	}
	r.codes[in.MemberCode] = true
	r.created = append(r.created, in)
	return members.Member{ID: uuid.New(), ParishID: *in.ParishID}, nil
}

type recordingIncome struct {
	recorded []finance.CreateIncomeInput
}

func (r *recordingIncome) RecordIncome(_ context.Context, _ authz.Principal, in finance.CreateIncomeInput) (finance.IncomeTransaction, error) {
	if !in.Amount.IsPositive() {
		return finance.IncomeTransaction{}, shared.BadRequest("amount must be positive")
	}
	r.recorded = append(r.recorded, in)
	return finance.IncomeTransaction{ID: uuid.New()}, nil
}

type memoryKeys struct{ seen map[string]bool }

func (m *memoryKeys) CheckAndInsert(_ context.Context, key, _ string) error {
	if m.seen[key] {
		return shared.ErrIdempotencyConflict
	}
	m.seen[key] = true
	return nil
}

func (m *memoryKeys) Delete(_ context.Context, key string) error {
	delete(m.seen, key)
	return nil
}

type countingObserver struct{ ok, failed int }

func (c *countingObserver) ObserveImport(_ string, ok, failed int) {
	c.ok += ok
	c.failed += failed
}

func secretaryOf(parish uuid.UUID) authz.Principal {
	return authz.Principal{UserID: uuid.New(), Role: authz.RoleSecretary, ParishID: &parish}
}

func TestImportMembersReportsRowErrors(t *testing.T) {
	sink := &recordingMembers{}
	obs := &countingObserver{}
	svc := NewService(sink, &recordingIncome{}, nil, obs, nil, nil)
	parish := uuid.New()

	csv := "\ufeffmember_code,first_name,last_name,middle_name,gender,date_of_birth\n" +
		"M-1,Agnes,Mwangi,,female,1990-05-17\n" +
		"M-2,,Otieno\n" +
		"\n" +
		"M-1,Duplicate,Person\n" +
		"M-3,Peter,Kamau,,robot\n" +
		"BOOM,Secret,Error\n" +
		"M-4,José,Njoroge,,,31/12/1985\n"
	result, err := svc.Import(context.Background(), secretaryOf(parish), KindMembers, Upload{FileName: "members.CSV", Data: []byte(csv)})
	require.NoError(t, err)

	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, []string{
		"Row 3: Missing required names",
		"Row 5: member_code already exists in this parish",
		"Row 6: Invalid gender: robot",
		"Row 7: Database error",
	}, result.Errors)
	require.Len(t, sink.created, 2)
	assert.Equal(t, parish, *sink.created[0].ParishID)
	require.NotNil(t, sink.created[0].Gender)
	assert.Equal(t, members.GenderFemale, *sink.created[0].Gender)
	assert.Equal(t, "José", sink.created[1].FirstName)
	assert.Equal(t, 1985, sink.created[1].DateOfBirth.Time.Year())
	assert.Equal(t, 2, obs.ok)
	assert.Equal(t, 4, obs.failed)
}

func TestImportTransactionsFromXLSX(t *testing.T) {
	book := excelize.NewFile()
	sheet := book.GetSheetName(0)
	rows := [][]any{
		{"category", "amount", "payment_method", "transaction_date", "description"},
		{"mass offering", "1,250.50", "cash", "2026-10-11", "Mass collection"},
		{"TITHE", "abc", "CASH", "2026-10-11"},
		{"TITHE", "-5", "MPESA", "2026-10-11"},
		{"NOT_A_CATEGORY", "10", "CASH", "2026-10-11"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, book.SetSheetRow(sheet, cell, &row))
	}
	buf, err := book.WriteToBuffer()
	require.NoError(t, err)

	income := &recordingIncome{}
	svc := NewService(&recordingMembers{}, income, nil, nil, nil, nil)
	parish := uuid.New()
	accountant := authz.Principal{UserID: uuid.New(), Role: authz.RoleAccountant, ParishID: &parish}

	result, err := svc.Import(context.Background(), accountant, KindTransactions, Upload{FileName: "book.xlsx", Data: buf.Bytes()})
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, []string{
		"Row 3: Invalid amount: abc",
		"Row 4: amount must be positive",
		"Row 5: Invalid category: NOT_A_CATEGORY",
	}, result.Errors)
	require.Len(t, income.recorded, 1)
	assert.Equal(t, finance.CategoryMassOffering, income.recorded[0].Category)
	assert.Equal(t, "1250.5", income.recorded[0].Amount.String())
}

func TestImportRoleAndScope(t *testing.T) {
	svc := NewService(&recordingMembers{}, &recordingIncome{}, nil, nil, nil, nil)
	home, other := uuid.New(), uuid.New()
	data := []byte("member_code,first_name,last_name\nM-1,A,B\n")

	viewer := authz.Principal{UserID: uuid.New(), Role: authz.RoleViewer, ParishID: &home}
	_, err := svc.Import(context.Background(), viewer, KindMembers, Upload{FileName: "m.csv", Data: data})
	require.ErrorIs(t, err, shared.ErrForbidden)

	_, err = svc.Import(context.Background(), secretaryOf(home), KindTransactions, Upload{FileName: "t.csv", Data: data})
	require.ErrorIs(t, err, shared.ErrForbidden)

	_, err = svc.Import(context.Background(), secretaryOf(home), KindMembers, Upload{FileName: "m.csv", Data: data, ParishID: &other})
	require.ErrorIs(t, err, shared.ErrForbidden)

	_, err = svc.Import(context.Background(), secretaryOf(home), KindMembers, Upload{FileName: "m.txt", Data: data})
	require.ErrorIs(t, err, shared.ErrBadRequest)
}

func TestImportIdempotencyKey(t *testing.T) {
	keys := &memoryKeys{seen: map[string]bool{}}
	sink := &recordingMembers{}
	svc := NewService(sink, &recordingIncome{}, keys, nil, nil, nil)
	p := secretaryOf(uuid.New())
	up := Upload{FileName: "m.csv", Data: []byte("code,first,last\nM-1,A,B\n"), IdempotencyKey: "batch-7"}

	first, err := svc.Import(context.Background(), p, KindMembers, up)
	require.NoError(t, err)
	assert.Equal(t, 1, first.SuccessCount)

	_, err = svc.Import(context.Background(), p, KindMembers, up)
	require.ErrorIs(t, err, shared.ErrConflict)
	assert.Len(t, sink.created, 1)
}

func TestImportHandlerMultipart(t *testing.T) {
	sink := &recordingMembers{}
	svc := NewService(sink, &recordingIncome{}, nil, nil, nil, nil)
	parish := uuid.New()
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(authz.ContextWithPrincipal(req.Context(), secretaryOf(parish))))
		})
	})
	NewHandler(nil, svc, 0).MountRoutes(r)

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", "members.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("member_code,first_name,last_name\nM-1,Agnes,Mwangi\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/import/members", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"success_count":1,"errors":[]}`, rr.Body.String())

	empty := &bytes.Buffer{}
	mw = multipart.NewWriter(empty)
	require.NoError(t, mw.WriteField("parish_id", parish.String()))
	require.NoError(t, mw.Close())
	req = httptest.NewRequest(http.MethodPost, "/import/members", empty)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestReadRowsKeepsFileLineNumbers(t *testing.T) {
	rows, err := ReadRows("x.csv", []byte("h1,h2\n\na, b \n\"multi\nline\",c\nd,e\n"))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, 3, rows[0].Number)
	assert.Equal(t, "b", rows[0].Cell(1))
	assert.Equal(t, 4, rows[1].Number)
	assert.Equal(t, 6, rows[2].Number)
	assert.Equal(t, "", rows[2].Cell(5))

	_, err = ReadRows("x.csv", nil)
	require.ErrorIs(t, err, shared.ErrBadRequest)
}
