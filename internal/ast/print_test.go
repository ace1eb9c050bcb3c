package ast_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"mlsec/internal/ast"
	"mlsec/internal/parser"
)

// spanInsensitive treats every ast.Span as equal to every other, so
// structural comparisons below aren't defeated by Print's output having
// different byte offsets than the original source.
var spanInsensitive = cmp.Comparer(func(a, b ast.Span) bool { return true })

// ignoreBaseEmbeds skips the unexported baseStmt/baseExpr fields that every
// node embeds to implement Pos(); their only content is the Span already
// covered by spanInsensitive above, and go-cmp can't otherwise see past
// their unexported type to apply that comparer.
var ignoreBaseEmbeds = cmp.FilterPath(func(p cmp.Path) bool {
	sf, ok := p.Last().(cmp.StructField)
	return ok && (sf.Name() == "baseStmt" || sf.Name() == "baseExpr")
}, cmp.Ignore())

func roundTrip(t *testing.T, src string) {
	t.Helper()
	prog, err := parser.Parse([]byte(src), "original.ml")
	if err != nil {
		t.Fatalf("Parse(original) error: %v", err)
	}
	printed := ast.Print(prog)
	reparsed, err := parser.Parse([]byte(printed), "printed.ml")
	if err != nil {
		t.Fatalf("Parse(Print(ast)) error: %v\nprinted source:\n%s", err, printed)
	}
	if diff := cmp.Diff(prog, reparsed, spanInsensitive, ignoreBaseEmbeds); diff != "" {
		t.Errorf("Parse(Print(ast)) != ast (-original +reparsed):\n%s\nprinted source:\n%s", diff, printed)
	}
}

func TestRoundTripAssignmentAndArithmetic(t *testing.T) {
	roundTrip(t, `x = 1 + 2 * 3;`)
}

func TestRoundTripControlFlow(t *testing.T) {
	roundTrip(t, `
function classify(n) {
	if (n < 0) {
		return "negative";
	} elif (n == 0) {
		return "zero";
	} else {
		return "positive";
	}
}
`)
}

func TestRoundTripLoopsAndCollections(t *testing.T) {
	roundTrip(t, `
total = 0;
items = [1, 2, 3];
for (item in items) {
	total = total + item;
}
config = {name: "job", retries: 3, "weird key": true};
`)
}

func TestRoundTripTryExceptFinally(t *testing.T) {
	roundTrip(t, `
function safeDivide(a, b) {
	try {
		return a / b;
	} except (e) {
		return 0;
	} finally {
		log("done");
	}
}
`)
}

func TestRoundTripCapabilityAndImport(t *testing.T) {
	roundTrip(t, `
import net.http as http;

capability fs {
	resource "/tmp/*";
	resource "/var/data/*";
	allow read;
	allow write to "/tmp/scratch";
}

function main() {
	while (true) {
		break;
	}
}
`)
}

func TestRoundTripMemberAndIndexAccess(t *testing.T) {
	roundTrip(t, `
record = {values: [10, 20, 30]};
x = record.values[0];
record.values[1] = x;
`)
}

func TestRoundTripUnaryAndLogical(t *testing.T) {
	roundTrip(t, `flag = !false && (1 < 2 || -3 == -3);`)
}
