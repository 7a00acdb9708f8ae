package database

// Order queries
const (
	InsertOrderSQL = `
		INSERT INTO orders (number, table_id, guest_id, waiter_id, source, status,
			subtotal, tax, total, special_instructions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	InsertOrderItemSQL = `
		INSERT INTO order_items (order_id, menu_item_id, name, quantity, unit_price,
			subtotal, prep_status, prep_area, special_instructions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	GetOrderSQL = `
		SELECT id, number, table_id, guest_id, waiter_id, source, status,
			   subtotal, tax, total, special_instructions, notes,
			   created_at, updated_at, served_at, paid_at
		FROM orders WHERE id = $1`

	GetOrderItemsSQL = `
		SELECT id, order_id, menu_item_id, name, quantity, unit_price, subtotal,
			   prep_status, prep_area, special_instructions
		FROM order_items WHERE order_id = $1
		ORDER BY id ASC`

	// Compare-and-set on the previous status so two concurrent transitions
	// evaluated against the same snapshot cannot both win.
	UpdateOrderStatusSQL = `
		UPDATE orders
		SET status = $2,
			notes = COALESCE($4, notes),
			served_at = COALESCE(served_at, $5),
			paid_at = COALESCE(paid_at, $6),
			updated_at = NOW()
		WHERE id = $1 AND status = $3`

	UpdateOrderItemPrepStatusSQL = `
		UPDATE order_items SET prep_status = $3
		WHERE id = $2 AND order_id = $1
		RETURNING menu_item_id, prep_area`

	CountItemsNotReadySQL = `
		SELECT COUNT(*) FROM order_items
		WHERE order_id = $1 AND prep_status NOT IN ('ready', 'served')`

	CountActiveOrdersForTableSQL = `
		SELECT COUNT(*) FROM orders
		WHERE table_id = $1 AND id != $2 AND status NOT IN ('paid', 'cancelled')`

	NextOrderSequenceSQL = `
		SELECT COUNT(*) + 1 FROM orders WHERE created_at::date = CURRENT_DATE`

	InsertOrderStatusLogSQL = `
		INSERT INTO order_status_log (order_id, status, changed_by, notes)
		VALUES ($1, $2, $3, $4)`

	GetOrderStatusLogSQL = `
		SELECT order_id, status, changed_by, changed_at, notes
		FROM order_status_log
		WHERE order_id = $1
		ORDER BY changed_at ASC`
)

// Menu and stock queries
const (
	GetMenuItemSQL = `
		SELECT id, category_id, name, price, prep_area, prep_time_minutes,
			   status, stock_quantity, unit, low_stock_threshold
		FROM menu_items WHERE id = $1`

	// Conditional decrement: the WHERE clause guarantees tracked stock can
	// never go below zero, and the row lock serializes concurrent sales.
	DecrementStockSQL = `
		UPDATE menu_items
		SET stock_quantity = stock_quantity - $2
		WHERE id = $1 AND stock_quantity IS NOT NULL AND stock_quantity >= $2
		RETURNING stock_quantity, name, unit, low_stock_threshold`

	IncrementStockSQL = `
		UPDATE menu_items
		SET stock_quantity = stock_quantity + $2
		WHERE id = $1 AND stock_quantity IS NOT NULL
		RETURNING stock_quantity, name, unit, low_stock_threshold`

	InsertInventoryTransactionSQL = `
		INSERT INTO inventory_transactions (menu_item_id, transaction_type, quantity,
			unit, order_id, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	GetSaleTransactionsForOrderSQL = `
		SELECT id, menu_item_id, transaction_type, quantity, unit, order_id,
			   notes, created_by, created_at
		FROM inventory_transactions
		WHERE order_id = $1 AND transaction_type = 'sale'
		ORDER BY id ASC`

	GetTransactionsForOrderSQL = `
		SELECT id, menu_item_id, transaction_type, quantity, unit, order_id,
			   notes, created_by, created_at
		FROM inventory_transactions
		WHERE order_id = $1
		ORDER BY id ASC`
)

// Payment and tip queries
const (
	InsertPaymentSQL = `
		INSERT INTO payments (order_id, amount, payment_method, status, gateway_response)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	SumCompletedPaymentsSQL = `
		SELECT COALESCE(SUM(amount), 0) FROM payments
		WHERE order_id = $1 AND status = 'completed'`

	UpsertTipSQL = `
		INSERT INTO tips (order_id, waiter_id, amount, method)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (order_id) DO UPDATE SET
			waiter_id = EXCLUDED.waiter_id,
			amount = EXCLUDED.amount,
			method = EXCLUDED.method
		RETURNING id, created_at`
)

// Table and staff queries
const (
	SetTableStatusSQL = `
		UPDATE tables SET status = $2 WHERE id = $1`

	GetTableSQL = `
		SELECT id, name, capacity, status FROM tables WHERE id = $1`

	GetActiveManagersSQL = `
		SELECT id, name, role, status FROM staff
		WHERE role IN ('manager', 'admin') AND status = 'active'`
)

// Audit queries
const (
	InsertAuditLogSQL = `
		INSERT INTO audit_logs (entity_type, entity_id, event, old_values, new_values, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
)
