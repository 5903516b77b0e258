package api

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

const (
	testID      = "3f2504e0-4f89-41d3-9a0c-0305e82c3301"
	otherTestID = "9b2c6a8e-1d4f-4c8e-8f5a-2a7e3c1b0d44"
)

func TestValidateID(t *testing.T) {
	path := field.NewPath("id")
	assert.Empty(t, ValidateID(testID, path))
	assert.NotEmpty(t, ValidateID("", path))
	assert.NotEmpty(t, ValidateID("not-a-uuid", path))
	// Braced and URN forms parse as UUIDs but are not the wire format.
	assert.NotEmpty(t, ValidateID("{"+testID+"}", path))
	assert.NotEmpty(t, ValidateID("urn:uuid:"+testID, path))
}

func TestCheck_NormalizesIdempotently(t *testing.T) {
	body := &BookmarkCreate{
		URL:   "  https://example.com/a  ",
		Title: "  Title ",
		Tags:  []string{testID, " " + testID, otherTestID},
	}
	require.NoError(t, Check(body))
	first := *body
	require.NoError(t, Check(body))

	assert.Equal(t, first, *body)
	assert.Equal(t, "https://example.com/a", body.URL)
	assert.Equal(t, "Title", body.Title)
	assert.Equal(t, []string{testID, otherTestID}, body.Tags)
}

func TestCheck_ReportsEveryProblem(t *testing.T) {
	err := Check(&BookmarkCreate{URL: "ftp://example.com", Title: strings.Repeat("x", maxTitleLength+1), Tags: []string{"bad"}})
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindValidation, apiErr.Kind)
	assert.Contains(t, apiErr.Fields, "body.url")
	assert.Contains(t, apiErr.Fields, "body.title")
	assert.Contains(t, apiErr.Fields, "body.tags[0]")
}

func TestValidateRequest_PathAndBody(t *testing.T) {
	err := ValidateRequest(tagEndpoints.get, map[string]string{"id": "42"}, nil, nil)
	assert.ErrorIs(t, err, ErrValidation)

	err = ValidateRequest(tagEndpoints.get, map[string]string{"id": testID}, nil, nil)
	assert.NoError(t, err)

	err = ValidateRequest(tagEndpoints.create, nil, nil, nil)
	assert.ErrorIs(t, err, ErrValidation, "missing body")

	err = ValidateRequest(epFeedImport, nil, nil, &TagCreate{Title: "x"})
	assert.ErrorIs(t, err, ErrValidation, "json body on multipart endpoint")

	err = ValidateRequest(epFeedImport, nil, nil, &Upload{Filename: "feeds.opml", Content: strings.NewReader("<opml/>")})
	assert.NoError(t, err)
}

func TestValidateResponse_RejectsContractViolations(t *testing.T) {
	var tag Tag
	err := ValidateResponse(tagEndpoints.get, []byte(`{"id":"`+testID+`","title":""}`), &tag)
	require.ErrorIs(t, err, ErrValidation)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Fields, "response.title")
	assert.Contains(t, apiErr.Fields, "response.createdAt")

	err = ValidateResponse(tagEndpoints.get, []byte(`not json`), &tag)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateFields_EncodeThreeStates(t *testing.T) {
	delta := FolderUpdate{Title: Set("Reading"), ParentID: Null[string]()}
	raw, err := json.Marshal(delta)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Reading","parentId":null}`, string(raw))

	raw, err = json.Marshal(FolderUpdate{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(raw))
	assert.True(t, FolderUpdate{}.Empty())
}

func TestUpdateFields_RejectClearingRequiredValues(t *testing.T) {
	errs := TagUpdate{Title: Null[string]()}.Validate(field.NewPath("body"))
	assert.NotEmpty(t, errs)

	errs = BookmarkUpdate{Tags: Null[[]string]()}.Validate(field.NewPath("body"))
	assert.NotEmpty(t, errs)

	errs = BookmarkUpdate{Tags: Set([]string{})}.Validate(field.NewPath("body"))
	assert.Empty(t, errs)
}

func TestFolder_RejectsSelfParent(t *testing.T) {
	folder := Folder{ID: testID, Title: "Loop", ParentID: ptr(testID)}
	folder.CreatedAt = mustTime(t, "2024-01-01T00:00:00Z")
	folder.UpdatedAt = folder.CreatedAt
	assert.NotEmpty(t, folder.Validate(field.NewPath("response")))
}

func TestDetectResult_DecodesBothShapes(t *testing.T) {
	var res DetectResult
	require.NoError(t, json.Unmarshal([]byte(`[{"url":"https://example.com/feed.xml","title":"Feed"}]`), &res))
	assert.Nil(t, res.Feed)
	assert.Len(t, res.Candidates, 1)

	feed := `{"id":"` + testID + `","sourceUrl":"https://example.com/feed.xml","link":"https://example.com","title":"Feed",` +
		`"createdAt":"2024-01-01T00:00:00Z","updatedAt":"2024-01-01T00:00:00Z"}`
	require.NoError(t, json.Unmarshal([]byte(feed), &res))
	require.NotNil(t, res.Feed)
	assert.Nil(t, res.Candidates)
	assert.Empty(t, res.Validate(field.NewPath("response")))
}

func TestLibraryItem_ExactlyOneVariant(t *testing.T) {
	raw := `{"type":"folder","data":{"id":"` + testID + `","title":"Tech",` +
		`"createdAt":"2024-01-01T00:00:00Z","updatedAt":"2024-01-01T00:00:00Z"}}`
	var item LibraryItem
	require.NoError(t, json.Unmarshal([]byte(raw), &item))
	assert.Equal(t, LibraryFolder, item.Type)
	assert.Equal(t, testID, item.RecordID())
	assert.Equal(t, "Tech", item.Title())
	assert.Empty(t, item.Validate(field.NewPath("item")))

	item.Feed = &Feed{}
	assert.NotEmpty(t, item.Validate(field.NewPath("item")))

	require.NoError(t, json.Unmarshal([]byte(`{"type":"playlist","data":{}}`), &item))
	assert.NotEmpty(t, item.Validate(field.NewPath("item")))
}

func TestSubscriptionEntryListQuery_ErrorsInFieldOrder(t *testing.T) {
	q := SubscriptionEntryListQuery{SubscriptionID: "x", StreamID: "y", CollectionID: "z"}
	want := []string{"query.subscriptionId", "query.streamId", "query.collectionId"}
	for range 20 {
		errs := q.Validate(field.NewPath("query"))
		got := make([]string, 0, len(errs))
		for _, e := range errs {
			got = append(got, e.Field)
		}
		require.Equal(t, want, got)
	}
}
