package application

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appclient "intake/internal/application/client"
	"intake/internal/application/gate"
	"intake/internal/application/handler"
	"intake/internal/application/models"
	"intake/internal/application/schema"
	applicationService "intake/internal/application/service"
	docstore "intake/internal/application/store/document"
	"intake/internal/application/store/draft"
	"intake/internal/application/workflow"
	"intake/internal/document"
	jwttoken "intake/internal/jwt_token"
	"intake/internal/payment"
)

// newIntakeServer wires the full backend over memory stores.
func newIntakeServer(t *testing.T, fee int64) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	drafts := draft.NewInMemory()
	docs := docstore.NewInMemory()
	appSvc := applicationService.New(drafts, docs, applicationService.WithLogger(logger))
	docSvc := document.New(docs, drafts, document.WithLogger(logger))
	paySvc := payment.New(drafts, fee, payment.WithLogger(logger))
	jwtService := jwttoken.NewJWTService("integration-key", "intake", "intake-api")

	h := handler.New(appSvc, docSvc, paySvc, jwtService,
		jwttoken.NewJWTServiceAdapter(jwtService), logger, nil)
	router := chi.NewRouter()
	h.Register(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func upload(t *testing.T, server *httptest.Server, token, appID, docType, name string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("type", docType))
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte("content of " + name))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, server.URL+"/applications/"+appID+"/documents", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func completePayment(t *testing.T, server *httptest.Server, token, appID string) {
	t.Helper()
	body := bytes.NewReader([]byte(`{"reference":"integration-ref"}`))
	req, err := http.NewRequest(http.MethodPost, server.URL+"/applications/"+appID+"/payment/complete", body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

// TestIntakeFlow_EndToEnd walks an applicant from an empty form to a
// submitted application through the real HTTP stack.
func TestIntakeFlow_EndToEnd(t *testing.T) {
	ctx := context.Background()
	server := newIntakeServer(t, 7500)
	apiClient := appclient.New(server.URL)

	controller, err := workflow.New(apiClient, apiClient, apiClient)
	require.NoError(t, err)

	// Step 1: personal particulars. The draft is created on completion.
	controller.SetPersonal(models.PersonalParticulars{
		Title:       "Ms",
		FamilyName:  "Virtanen",
		GivenNames:  "Aino",
		Region:      "FI",
		Email:       "a.virtanen@example.org",
		MobilePhone: "040 555 0188",
	})
	tr, err := controller.Next(ctx)
	require.NoError(t, err)
	require.True(t, tr.Moved)
	require.True(t, controller.State().Bound())

	// Step 2: subject selection.
	controller.SetSubject(models.SubjectSelection{SubjectType: "PRACTICAL", SubjectID: "cello"})
	tr, err = controller.Next(ctx)
	require.NoError(t, err)
	require.True(t, tr.Moved)

	// Steps 3..7: collections, all left empty on purpose.
	for step := schema.StepQualifications; step <= schema.StepTraining; step++ {
		tr, err = controller.Next(ctx)
		require.NoError(t, err)
		require.True(t, tr.Moved, "step %d should pass with no entries", step)
		require.Empty(t, tr.Warning)
	}

	// Step 8: additional info.
	controller.SetAdditional(models.AdditionalInfo{Notes: "Weekend availability only"})
	tr, err = controller.Next(ctx)
	require.NoError(t, err)
	require.True(t, tr.Moved)

	appID := controller.State().ApplicationID.String()
	token := apiClient.Token()
	resumeCode := apiClient.ResumeCode()
	require.NotEmpty(t, resumeCode)

	// Step 9: documents gate blocks until both types are present.
	tr, err = controller.Next(ctx)
	require.Error(t, err)
	require.False(t, tr.Moved)
	assert.Contains(t, tr.GateReasons, gate.ReasonPhotographRequired)
	assert.Contains(t, tr.GateReasons, gate.ReasonCertificateRequired)

	upload(t, server, token, appID, "photograph", "face.jpg")
	tr, err = controller.Next(ctx)
	require.Error(t, err)
	assert.Equal(t, []string{gate.ReasonCertificateRequired}, tr.GateReasons)

	upload(t, server, token, appID, "certificate", "degree.pdf")
	tr, err = controller.Next(ctx)
	require.NoError(t, err)
	require.True(t, tr.Moved)

	// Step 10: payment gate blocks silently while the fee is outstanding.
	tr, err = controller.Next(ctx)
	require.NoError(t, err)
	require.False(t, tr.Moved)
	assert.Contains(t, tr.GateReasons, gate.ReasonPaymentOutstanding)

	completePayment(t, server, token, appID)
	tr, err = controller.Next(ctx)
	require.NoError(t, err)
	require.True(t, tr.Moved)
	require.Equal(t, schema.StepReview, tr.Step)

	// Step 11: review and submit.
	require.NoError(t, controller.Submit(ctx))

	rec, err := apiClient.Fetch(ctx, controller.State().ApplicationID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, rec.Status)
	require.NotNil(t, rec.SubmittedAt)
}

// TestIntakeFlow_SaveExitAndResume verifies a draft survives an exit and a
// resume on a fresh client, including the local-wins merge rules.
func TestIntakeFlow_SaveExitAndResume(t *testing.T) {
	ctx := context.Background()
	server := newIntakeServer(t, 0)
	first := appclient.New(server.URL)

	controller, err := workflow.New(first, first, first)
	require.NoError(t, err)

	controller.SetPersonal(models.PersonalParticulars{
		Title:      "Mr",
		FamilyName: "Osei",
		GivenNames: "Kwame",
		Region:     "GH",
		Email:      "k.osei@example.org",
		HomePhone:  "030 555 0100",
	})
	_, err = controller.Next(ctx)
	require.NoError(t, err)

	controller.SetSubject(models.SubjectSelection{SubjectType: "WRITTEN", SubjectID: "theory-grade-5"})
	_, err = controller.Next(ctx)
	require.NoError(t, err)

	controller.SetQualifications([]models.Qualification{
		{UniversityCollege: "University of Ghana", DegreeType: "BA Music"},
	})
	_, err = controller.Next(ctx)
	require.NoError(t, err)

	_, err = controller.SaveAndExit(ctx)
	require.NoError(t, err)

	appID := controller.State().ApplicationID
	code := first.ResumeCode()

	// A fresh session on another device.
	second := appclient.New(server.URL)
	rec, err := second.Resume(ctx, appID.String(), code)
	require.NoError(t, err)

	resumed, err := workflow.New(second, second, second)
	require.NoError(t, err)
	require.NoError(t, resumed.Resume(rec))

	state := resumed.State()
	assert.Equal(t, appID, state.ApplicationID)
	assert.ElementsMatch(t, []int{1, 2, 3}, state.CompletedSteps())
	assert.Equal(t, "University of Ghana", resumed.Record().Qualifications[0].UniversityCollege)
}
