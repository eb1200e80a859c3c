package translate

import "github.com/phobologic/rs2zig/internal/model"

// UnknownExpr stands in for any initializer that is not an integer literal.
const UnknownExpr = "???"

// Expr returns the Zig text for a constant initializer. It never fails.
func Expr(e model.Expr) string {
	if lit, ok := e.(*model.IntLit); ok {
		return lit.Text
	}
	return UnknownExpr
}
