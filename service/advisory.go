package service

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v8"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trustd-project/trustd/entity"
	"github.com/trustd-project/trustd/query"
	"github.com/trustd-project/trustd/trustderr"
)

// AdvisorySummary is one row of a fetch_advisories search result.
type AdvisorySummary struct {
	ID              uuid.UUID
	Identifier      string
	Issuer          string
	Title           string
	AverageScore    float64
	AverageSeverity entity.Severity
	Deprecated      bool
}

// AdvisoryDetails is the full row returned by fetch_advisory(id).
type AdvisoryDetails struct {
	AdvisorySummary
	Vulnerabilities []entity.AdvisoryVulnerability
}

// AdvisoryService implements the advisory search/fetch/label-update paths.
type AdvisoryService struct {
	pool *pgxpool.Pool
}

// NewAdvisoryService constructs an AdvisoryService over pool.
func NewAdvisoryService(pool *pgxpool.Pool) *AdvisoryService {
	return &AdvisoryService{pool: pool}
}

// severityAggExpr is the inner-select synthetic aggregate: average CVSS3
// score across every vulnerability attached to the advisory, grouped by
// advisory id so it can be addressed as an ordinary outer column.
const severityAggExpr = `AVG(cvss3.score)`

// advisoryColumns builds the per-query registry for advisory search: real
// columns off "advisory", the synthetic "average_score"/"average_severity"
// expressions, and a translator rewriting a sort/filter on
// average_severity into the equivalent average_score comparison (severity
// is a banded view of the numeric aggregate, so it has no column of its
// own to sort by).
func advisoryColumns() query.Columns {
	cols := query.NewColumns().
		AddColumn("advisory", "id", query.TypeString).
		AddColumn("advisory", "identifier", query.TypeString).
		AddColumn("advisory", "issuer", query.TypeString).
		AddColumn("advisory", "title", query.TypeString).
		AddColumn("advisory", "deprecated", query.TypeBool).
		AddColumn("advisory", "average_score", query.TypeFloat).
		AddEnumColumn("", "average_severity", query.TypeEnum,
			[]string{"none", "low", "medium", "high", "critical"})
	return cols.WithTranslator(severitySortTranslator)
}

func severitySortTranslator(field, op, value string) (string, bool) {
	if field != "average_severity" {
		return "", false
	}
	bands := map[string]string{"none": "0", "low": "1", "medium": "2", "high": "3", "critical": "4"}
	n, ok := bands[value]
	if !ok {
		return "", false
	}
	return fmt.Sprintf("average_score%s%s", op, n), true
}

// advisoryInnerSelect builds the inner select: advisory joined to its
// vulnerabilities' CVSS3 scores, grouped by advisory id, computing
// average_score as a synthetic column. Wrapped "from (inner) as advisory"
// in FetchAdvisories so outer filters/sorts address average_score (and the
// translated average_severity) as if it were an ordinary advisory column.
func advisoryInnerSelect() *goqu.SelectDataset {
	return goqu.Dialect("postgres").From("advisory").
		LeftJoin(goqu.T("advisory_vulnerability"), goqu.On(goqu.Ex{"advisory_vulnerability.advisory_id": goqu.I("advisory.id")})).
		LeftJoin(goqu.T("cvss3"), goqu.On(goqu.Ex{"cvss3.advisory_vuln_id": goqu.I("advisory_vulnerability.id")})).
		Select(
			goqu.I("advisory.id"),
			goqu.I("advisory.identifier"),
			goqu.I("advisory.issuer"),
			goqu.I("advisory.title"),
			goqu.I("advisory.deprecated"),
			goqu.Func("COALESCE", goqu.AVG(goqu.I("cvss3.score")), 0).As("average_score"),
		).
		GroupBy(goqu.I("advisory.id"))
}

// FetchAdvisories runs a filter+sort search over advisories, honoring dep
// to include or exclude deprecated rows.
func (s *AdvisoryService) FetchAdvisories(ctx context.Context, search, sort string, page Page, dep Deprecation) (Paginated[AdvisorySummary], error) {
	q, err := query.Parse(search)
	if err != nil {
		return Paginated[AdvisorySummary]{}, trustderr.Wrap(trustderr.SearchSyntax, "FetchAdvisories", "invalid filter", err)
	}
	if sort != "" {
		q, err = q.Sort(sort)
		if err != nil {
			return Paginated[AdvisorySummary]{}, trustderr.Wrap(trustderr.SearchSyntax, "FetchAdvisories", "invalid sort", err)
		}
	}

	cols := advisoryColumns()
	where, order, err := q.Compile(cols)
	if err != nil {
		return Paginated[AdvisorySummary]{}, trustderr.Wrap(trustderr.SearchSyntax, "FetchAdvisories", "compile failed", err)
	}
	if dep == Ignore {
		where = goqu.And(where, goqu.Ex{"advisory.deprecated": false})
	}

	outer := goqu.Dialect("postgres").From(advisoryInnerSelect().As("advisory")).
		Prepared(true).
		Select(goqu.Star()).
		Where(where).
		Order(order...).
		Offset(page.Offset).
		Limit(page.Limit)

	sqlStr, args, err := outer.ToSQL()
	if err != nil {
		return Paginated[AdvisorySummary]{}, trustderr.Wrap(trustderr.Internal, "FetchAdvisories", "render sql", err)
	}

	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return Paginated[AdvisorySummary]{}, trustderr.Wrap(trustderr.Internal, "FetchAdvisories", "query failed", err)
	}
	defer rows.Close()

	var out Paginated[AdvisorySummary]
	for rows.Next() {
		var sum AdvisorySummary
		if err := rows.Scan(&sum.ID, &sum.Identifier, &sum.Issuer, &sum.Title, &sum.Deprecated, &sum.AverageScore); err != nil {
			return Paginated[AdvisorySummary]{}, trustderr.Wrap(trustderr.Internal, "FetchAdvisories", "scan row", err)
		}
		sum.AverageSeverity = severityBand(sum.AverageScore)
		out.Items = append(out.Items, sum)
	}
	if err := rows.Err(); err != nil {
		return Paginated[AdvisorySummary]{}, trustderr.Wrap(trustderr.Internal, "FetchAdvisories", "iterate rows", err)
	}

	countSQL, countArgs, err := goqu.Dialect("postgres").
		From(advisoryInnerSelect().As("advisory")).
		Prepared(true).
		Select(goqu.COUNT(goqu.Star())).
		Where(where).
		ToSQL()
	if err != nil {
		return Paginated[AdvisorySummary]{}, trustderr.Wrap(trustderr.Internal, "FetchAdvisories", "render count sql", err)
	}
	if err := s.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&out.Total); err != nil {
		return Paginated[AdvisorySummary]{}, trustderr.Wrap(trustderr.Internal, "FetchAdvisories", "count query failed", err)
	}
	return out, nil
}

func severityBand(score float64) entity.Severity {
	switch {
	case score < 0.1:
		return entity.SeverityNone
	case score < 4:
		return entity.SeverityLow
	case score < 7:
		return entity.SeverityMedium
	case score < 9:
		return entity.SeverityHigh
	default:
		return entity.SeverityCritical
	}
}

// idKind classifies the fetch_advisory(id) key.
type idKind int

const (
	idUUID idKind = iota
	idSHA256
	idSHA384
	idSHA512
)

func classifyID(id string) (idKind, error) {
	switch {
	case len(id) == 36:
		if _, err := uuid.Parse(id); err == nil {
			return idUUID, nil
		}
	case len(id) == 64:
		return idSHA256, nil
	case len(id) == 96:
		return idSHA384, nil
	case len(id) == 128:
		return idSHA512, nil
	}
	return 0, fmt.Errorf("advisory: %q is not a recognized id/sha256/sha384/sha512 key", id)
}

const (
	fetchAdvisoryByIDSQL = `
		SELECT a.id, a.identifier, a.issuer, a.title, a.deprecated
		FROM advisory a WHERE a.id = $1`
	fetchAdvisoryByDigestSQL = `
		SELECT a.id, a.identifier, a.issuer, a.title, a.deprecated
		FROM advisory a
		JOIN source_document sd ON sd.id = a.document_id
		WHERE sd.%s = $1`
)

// FetchAdvisory resolves a single advisory by uuid, sha256, sha384, or
// sha512 key, per spec's TrySelectForId dispatch.
func (s *AdvisoryService) FetchAdvisory(ctx context.Context, id string) (*AdvisoryDetails, error) {
	kind, err := classifyID(id)
	if err != nil {
		return nil, trustderr.Wrap(trustderr.Input, "FetchAdvisory", "bad id", err)
	}

	var sqlStr string
	switch kind {
	case idUUID:
		sqlStr = fetchAdvisoryByIDSQL
	case idSHA256:
		sqlStr = fmt.Sprintf(fetchAdvisoryByDigestSQL, "sha256")
	case idSHA384:
		sqlStr = fmt.Sprintf(fetchAdvisoryByDigestSQL, "sha384")
	case idSHA512:
		sqlStr = fmt.Sprintf(fetchAdvisoryByDigestSQL, "sha512")
	}

	var d AdvisoryDetails
	row := s.pool.QueryRow(ctx, sqlStr, id)
	if err := row.Scan(&d.ID, &d.Identifier, &d.Issuer, &d.Title, &d.Deprecated); err != nil {
		if err == pgx.ErrNoRows {
			return nil, trustderr.New(trustderr.NotFound, "FetchAdvisory", "no advisory for key "+id)
		}
		return nil, trustderr.Wrap(trustderr.Internal, "FetchAdvisory", "query failed", err)
	}
	return &d, nil
}

const updateAdvisoryLabelsSQL = `
	SELECT labels FROM advisory WHERE id = $1 FOR UPDATE`
const writeAdvisoryLabelsSQL = `
	UPDATE advisory SET labels = $2 WHERE id = $1`

// UpdateLabels re-selects the advisory FOR UPDATE, applies mutator to its
// current labels, and writes the result back, all in one transaction. If
// the advisory does not exist, it returns (false, nil) rather than an
// error.
func (s *AdvisoryService) UpdateLabels(ctx context.Context, id uuid.UUID, mutator func(map[string]string) map[string]string) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, trustderr.Wrap(trustderr.Internal, "UpdateLabels", "begin tx", err)
	}
	defer tx.Rollback(ctx)

	var labels map[string]string
	if err := tx.QueryRow(ctx, updateAdvisoryLabelsSQL, id).Scan(&labels); err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, trustderr.Wrap(trustderr.Internal, "UpdateLabels", "select for update", err)
	}

	updated := mutator(labels)
	if _, err := tx.Exec(ctx, writeAdvisoryLabelsSQL, id, updated); err != nil {
		return false, trustderr.Wrap(trustderr.Internal, "UpdateLabels", "write labels", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, trustderr.Wrap(trustderr.Internal, "UpdateLabels", "commit", err)
	}
	return true, nil
}

const (
	deprecateAdvisorySQL = `
		UPDATE advisory SET deprecated = true WHERE id = $1 AND NOT deprecated
		RETURNING identifier`
	promoteDeprecatedAdvisorySQL = `
		UPDATE advisory SET deprecated = false
		WHERE id = (
			SELECT a.id FROM advisory a
			JOIN source_document sd ON sd.id = a.document_id
			WHERE a.identifier = $1 AND a.deprecated AND a.id <> $2
			ORDER BY sd.ingested_at DESC
			LIMIT 1
		)`
)

// DeprecateAdvisory marks id as deprecated, then promotes the newest
// remaining Deprecated advisory sharing its identifier back to Current, so
// an identifier with more than one ingested revision always keeps exactly
// one Current row after a delete. Returns (false, nil) if id does not exist
// or is already deprecated. PURL garbage collection (spec's other DELETE
// side effect) is not implemented: nothing in this store tracks PURL
// reference counts yet.
func (s *AdvisoryService) DeprecateAdvisory(ctx context.Context, id uuid.UUID) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, trustderr.Wrap(trustderr.Internal, "DeprecateAdvisory", "begin tx", err)
	}
	defer tx.Rollback(ctx)

	var identifier string
	if err := tx.QueryRow(ctx, deprecateAdvisorySQL, id).Scan(&identifier); err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, trustderr.Wrap(trustderr.Internal, "DeprecateAdvisory", "update failed", err)
	}

	if _, err := tx.Exec(ctx, promoteDeprecatedAdvisorySQL, identifier, id); err != nil {
		return false, trustderr.Wrap(trustderr.Internal, "DeprecateAdvisory", "promote prior deprecated", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, trustderr.Wrap(trustderr.Internal, "DeprecateAdvisory", "commit", err)
	}
	return true, nil
}
