package sdc

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// JacobiGQ returns the N+1 Gauss quadrature points and weights of the
// Jacobi polynomial P_(N+1)^(alpha,beta) on [-1,1], from the eigen
// decomposition of the symmetric Jacobi matrix.
func JacobiGQ(alpha, beta float64, N int) (X, W []float64) {
	if N == 0 {
		X = []float64{-(alpha - beta) / (alpha + beta + 2.)}
		W = []float64{2.}
		return
	}
	var (
		h1  = make([]float64, N+1)
		JJ  = mat.NewSymDense(N+1, nil)
		fac = -.5 * (alpha*alpha - beta*beta)
		eps = 1.e-16
	)
	for i := 0; i < N+1; i++ {
		h1[i] = 2*float64(i) + alpha + beta
	}
	// main diagonal: -1/2*(alpha^2-beta^2)./(h1+2)./h1
	for i := 0; i < N+1; i++ {
		val := h1[i]
		JJ.SetSym(i, i, fac/(val*(val+2.)))
	}
	if alpha+beta < 10*eps {
		JJ.SetSym(0, 0, 0.)
	}
	// 1st upper diagonal
	for i := 0; i < N; i++ {
		ip1 := float64(i + 1)
		val := h1[i]
		d1 := 2. / (val + 2.)
		d1 *= math.Sqrt(ip1 * (ip1 + alpha + beta) * (ip1 + alpha) * (ip1 + beta) / ((val + 1.) * (val + 3.)))
		JJ.SetSym(i, i+1, d1)
	}
	var eig mat.EigenSym
	if ok := eig.Factorize(JJ, true); !ok {
		panic("eigenvalue decomposition failed")
	}
	X = eig.Values(nil)
	VVr := mat.NewDense(N+1, N+1, nil)
	eig.VectorsTo(VVr)
	W = make([]float64, N+1)
	g0 := gamma0(alpha, beta)
	for i, v := range VVr.RawRowView(0) {
		W[i] = v * v * g0
	}
	return
}

// JacobiGL returns the N+1 Gauss-Lobatto points of P_N^(alpha,beta) on [-1,1].
func JacobiGL(alpha, beta float64, N int) (X []float64) {
	X = make([]float64, N+1)
	X[0], X[N] = -1, 1
	if N == 1 {
		return
	}
	xint, _ := JacobiGQ(alpha+1, beta+1, N-2)
	copy(X[1:N], xint)
	return
}

func gamma0(alpha, beta float64) float64 {
	ab1 := alpha + beta + 1.
	a1 := alpha + 1.
	b1 := beta + 1.
	return math.Gamma(a1) * math.Gamma(b1) * math.Pow(2, ab1) / ab1 / math.Gamma(ab1)
}

// LobattoNodes returns n Gauss-Lobatto nodes mapped to [0,1].
func LobattoNodes(n int) (nodes []float64, err error) {
	if n < 2 {
		return nil, fmt.Errorf("sdc needs at least 2 quadrature nodes, have %d", n)
	}
	nodes = JacobiGL(0, 0, n-1)
	for i, x := range nodes {
		nodes[i] = 0.5 * (x + 1)
	}
	return
}

// IntegrationMatrix returns S, (n-1) x n, with S[m][j] the integral of the
// j-th Lagrange polynomial on nodes over [nodes[m], nodes[m+1]].
func IntegrationMatrix(nodes []float64) (S *mat.Dense) {
	var (
		n      = len(nodes)
		xg, wg = JacobiGQ(0, 0, n-1) // exact for the degree n-1 Lagrange basis
	)
	S = mat.NewDense(n-1, n, nil)
	for m := 0; m < n-1; m++ {
		a, b := nodes[m], nodes[m+1]
		half := 0.5 * (b - a)
		for q := range xg {
			tau := a + half*(xg[q]+1)
			for j := 0; j < n; j++ {
				S.Set(m, j, S.At(m, j)+half*wg[q]*lagrange(nodes, j, tau))
			}
		}
	}
	return
}

func lagrange(nodes []float64, j int, x float64) (l float64) {
	l = 1
	for i, xi := range nodes {
		if i != j {
			l *= (x - xi) / (nodes[j] - xi)
		}
	}
	return
}
